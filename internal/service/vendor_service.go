package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateVendorRequest struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category"`
	Rating   float64 `json:"rating" binding:"gte=0,lte=5"`
}

type UpdateVendorRequest struct {
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Rating   *float64 `json:"rating"`
	Status   *string  `json:"status"`
}

type VendorResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	TotalOrders int     `json:"total_orders"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

// --- Interface ---

type VendorService interface {
	CreateVendor(ctx context.Context, actorID string, req CreateVendorRequest) (VendorResponse, error)
	GetVendor(ctx context.Context, id string) (VendorResponse, error)
	ListVendors(ctx context.Context, status, category string, page, limit int) ([]VendorResponse, int64, error)
	UpdateVendor(ctx context.Context, id, actorID string, req UpdateVendorRequest) (VendorResponse, error)
	DeleteVendor(ctx context.Context, id, actorID string) error
}

type vendorService struct {
	vendors repository.VendorRepository
	audits  repository.AuditRepository
	txm     repository.TransactionManager
}

func NewVendorService(
	vendors repository.VendorRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
) VendorService {
	return &vendorService{vendors: vendors, audits: audits, txm: txm}
}

// --- Implementation ---

func (s *vendorService) CreateVendor(ctx context.Context, actorID string, req CreateVendorRequest) (VendorResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid actor id: %w", err)
	}

	if _, err := s.vendors.FindByName(ctx, req.Name); err == nil {
		return VendorResponse{}, fmt.Errorf("vendor '%s' already exists", req.Name)
	}

	vendor := model.Vendor{
		Name:     req.Name,
		Category: req.Category,
		Rating:   req.Rating,
		Status:   model.VendorActive,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.vendors.Create(txCtx, &vendor); createErr != nil {
			return fmt.Errorf("failed to create vendor: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"name":     vendor.Name,
			"category": vendor.Category,
		})
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionCreateVendor,
			EntityID:   vendor.ID.String(),
			EntityName: vendor.Name,
			Details:    string(details),
		}
		return s.audits.Log(txCtx, &audit)
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(&vendor), nil
}

func (s *vendorService) GetVendor(ctx context.Context, id string) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid vendor id: %w", workflow.ErrNotFound)
	}

	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VendorResponse{}, fmt.Errorf("vendor %s: %w", vendorID, workflow.ErrNotFound)
		}
		return VendorResponse{}, err
	}

	return toVendorResponse(vendor), nil
}

func (s *vendorService) ListVendors(ctx context.Context, status, category string, page, limit int) ([]VendorResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	vendors, total, err := s.vendors.List(ctx, status, category, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]VendorResponse, 0, len(vendors))
	for i := range vendors {
		result = append(result, toVendorResponse(&vendors[i]))
	}
	return result, total, nil
}

func (s *vendorService) UpdateVendor(ctx context.Context, id, actorID string, req UpdateVendorRequest) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid vendor id: %w", workflow.ErrNotFound)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid actor id: %w", err)
	}

	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VendorResponse{}, fmt.Errorf("vendor %s: %w", vendorID, workflow.ErrNotFound)
		}
		return VendorResponse{}, err
	}

	if req.Name != nil && *req.Name != vendor.Name {
		if _, nameErr := s.vendors.FindByName(ctx, *req.Name); nameErr == nil {
			return VendorResponse{}, fmt.Errorf("vendor '%s' already exists", *req.Name)
		}
		vendor.Name = *req.Name
	}
	if req.Category != nil {
		vendor.Category = *req.Category
	}
	if req.Rating != nil {
		if *req.Rating < 0 || *req.Rating > 5 {
			return VendorResponse{}, fmt.Errorf("rating must be between 0 and 5")
		}
		vendor.Rating = *req.Rating
	}
	if req.Status != nil {
		if *req.Status != model.VendorActive && *req.Status != model.VendorInactive {
			return VendorResponse{}, fmt.Errorf("status must be ACTIVE or INACTIVE")
		}
		vendor.Status = *req.Status
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.vendors.Update(txCtx, vendor); saveErr != nil {
			return fmt.Errorf("failed to update vendor: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"name":   vendor.Name,
			"status": vendor.Status,
		})
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionUpdateVendor,
			EntityID:   vendor.ID.String(),
			EntityName: vendor.Name,
			Details:    string(details),
		}
		return s.audits.Log(txCtx, &audit)
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(vendor), nil
}

func (s *vendorService) DeleteVendor(ctx context.Context, id, actorID string) error {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid vendor id: %w", workflow.ErrNotFound)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return fmt.Errorf("invalid actor id: %w", err)
	}

	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("vendor %s: %w", vendorID, workflow.ErrNotFound)
		}
		return err
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.vendors.Delete(txCtx, vendorID); delErr != nil {
			return fmt.Errorf("failed to delete vendor: %w", delErr)
		}

		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionDeleteVendor,
			EntityID:   vendorID.String(),
			EntityName: vendor.Name,
		}
		return s.audits.Log(txCtx, &audit)
	})
}

// --- Helpers ---

func toVendorResponse(v *model.Vendor) VendorResponse {
	return VendorResponse{
		ID:          v.ID.String(),
		Name:        v.Name,
		Category:    v.Category,
		Rating:      v.Rating,
		TotalOrders: v.TotalOrders,
		Status:      v.Status,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
}
