package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	FindByName(ctx context.Context, name string) (*model.Vendor, error)
	List(ctx context.Context, status, category string, page, limit int) ([]model.Vendor, int64, error)
	Update(ctx context.Context, vendor *model.Vendor) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IncrementTotalOrders bumps the delivered-order counter atomically in SQL
	// so concurrent deliveries cannot lose an increment.
	IncrementTotalOrders(ctx context.Context, id uuid.UUID) error
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Create(vendor).Error
}

func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByName(ctx context.Context, name string) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) List(ctx context.Context, status, category string, page, limit int) ([]model.Vendor, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Vendor{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Order("name ASC")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if category != "" {
		fetchQuery = fetchQuery.Where("category = ?", category)
	}

	var vendors []model.Vendor
	if err := fetchQuery.Offset(offset).Limit(limit).Find(&vendors).Error; err != nil {
		return nil, 0, err
	}

	return vendors, total, nil
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Save(vendor).Error
}

func (r *vendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Vendor{}).Error
}

func (r *vendorRepository) IncrementTotalOrders(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Vendor{}).
		Where("id = ?", id).
		UpdateColumn("total_orders", gorm.Expr("total_orders + 1")).Error
}
