package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PORepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	List(ctx context.Context, status string, page, limit int) ([]model.PurchaseOrder, int64, error)
	Update(ctx context.Context, po *model.PurchaseOrder) error
	CountActiveByRequest(ctx context.Context, requestID uuid.UUID) (int64, error)
	NextPONumber(ctx context.Context) (string, error)
}

type poRepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) PORepository {
	return &poRepository{db: db}
}

func (r *poRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *poRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *poRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Request").
		Preload("Vendor").
		Preload("Creator").
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *poRepository) List(ctx context.Context, status string, page, limit int) ([]model.PurchaseOrder, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.PurchaseOrder{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Request").Preload("Vendor")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}

	var orders []model.PurchaseOrder
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *poRepository) Update(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Save(po).Error
}

// CountActiveByRequest counts non-cancelled purchase orders for a request.
// Used to enforce the one-active-PO-per-request invariant.
func (r *poRepository) CountActiveByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Where("request_id = ? AND status <> ?", requestID, model.POStatusCancelled).
		Count(&count).Error
	return count, err
}

// NextPONumber issues the next PO-YYYYMMDD-NNNNN number under an advisory
// lock, same scheme as request numbers.
func (r *poRepository) NextPONumber(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "PO-" + time.Now().Format("20060102") + "-"

	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.PurchaseOrder{}).
		Where("po_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
