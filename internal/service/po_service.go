package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/notification"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreatePODTO struct {
	RequestID    string `json:"request_id" binding:"required"`
	VendorID     string `json:"vendor_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
	TotalAmount  string `json:"total_amount" binding:"required"`
	DeliveryDate string `json:"delivery_date"` // optional, RFC3339
}

type UpdatePOStatusDTO struct {
	Status string `json:"status" binding:"required,oneof=SENT CONFIRMED DELIVERED CANCELLED"`
}

type POResponse struct {
	ID            string  `json:"id"`
	PONumber      string  `json:"po_number"`
	RequestID     string  `json:"request_id"`
	RequestNumber string  `json:"request_number,omitempty"`
	VendorID      string  `json:"vendor_id"`
	VendorName    string  `json:"vendor_name,omitempty"`
	Quantity      int     `json:"quantity"`
	TotalAmount   string  `json:"total_amount"`
	Status        string  `json:"status"`
	DeliveryDate  *string `json:"delivery_date"`
	CreatedAt     string  `json:"created_at"`
}

// --- Interface ---

type POService interface {
	CreatePurchaseOrder(ctx context.Context, creatorID string, req CreatePODTO) (POResponse, error)
	UpdateStatus(ctx context.Context, id, actorID string, req UpdatePOStatusDTO) (POResponse, error)
	GetPurchaseOrder(ctx context.Context, id string) (POResponse, error)
	ListPurchaseOrders(ctx context.Context, status string, page, limit int) ([]POResponse, int64, error)
}

type poService struct {
	pos      repository.PORepository
	requests repository.RequestRepository
	vendors  repository.VendorRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	notifier Notifier
}

func NewPOService(
	pos repository.PORepository,
	requests repository.RequestRepository,
	vendors repository.VendorRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	notifier Notifier,
) POService {
	return &poService{
		pos:      pos,
		requests: requests,
		vendors:  vendors,
		audits:   audits,
		txm:      txm,
		notifier: notifier,
	}
}

// poStatusEdges is the allowed forward path; CANCELLED is reachable from any
// non-terminal status.
var poStatusEdges = map[string]string{
	model.POStatusDraft:     model.POStatusSent,
	model.POStatusSent:      model.POStatusConfirmed,
	model.POStatusConfirmed: model.POStatusDelivered,
}

// --- Implementation ---

// CreatePurchaseOrder commits to a vendor for an approved request. Fails
// InvalidState unless the request is APPROVED, and enforces at most one
// active purchase order per request.
func (s *poService) CreatePurchaseOrder(ctx context.Context, creatorID string, req CreatePODTO) (POResponse, error) {
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return POResponse{}, fmt.Errorf("invalid request id: %w", workflow.ErrNotFound)
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return POResponse{}, fmt.Errorf("invalid vendor id: %w", workflow.ErrNotFound)
	}
	creator, err := uuid.Parse(creatorID)
	if err != nil {
		return POResponse{}, fmt.Errorf("invalid creator id: %w", err)
	}

	amount, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || amount.IsNegative() {
		return POResponse{}, fmt.Errorf("total_amount must be a non-negative decimal")
	}

	var deliveryDate *time.Time
	if req.DeliveryDate != "" {
		parsed, parseErr := time.Parse(time.RFC3339, req.DeliveryDate)
		if parseErr != nil {
			return POResponse{}, fmt.Errorf("invalid delivery_date: %w", parseErr)
		}
		deliveryDate = &parsed
	}

	po := model.PurchaseOrder{
		RequestID:    requestID,
		VendorID:     vendorID,
		Quantity:     req.Quantity,
		TotalAmount:  amount,
		Status:       model.POStatusDraft,
		CreatedBy:    &creator,
		DeliveryDate: deliveryDate,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requests.FindByID(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("request %s: %w", requestID, workflow.ErrNotFound)
			}
			return findErr
		}
		if request.State != model.StateApproved {
			return fmt.Errorf("request %s is %s, not APPROVED: %w",
				request.RequestNumber, request.State, workflow.ErrInvalidState)
		}

		vendor, vendErr := s.vendors.FindByID(txCtx, vendorID)
		if vendErr != nil {
			if errors.Is(vendErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("vendor %s: %w", vendorID, workflow.ErrNotFound)
			}
			return vendErr
		}
		if vendor.Status != model.VendorActive {
			return fmt.Errorf("vendor %s is inactive: %w", vendor.Name, workflow.ErrInvalidState)
		}

		active, countErr := s.pos.CountActiveByRequest(txCtx, requestID)
		if countErr != nil {
			return countErr
		}
		if active > 0 {
			return fmt.Errorf("request %s already has an active purchase order: %w",
				request.RequestNumber, workflow.ErrInvalidState)
		}

		number, numErr := s.pos.NextPONumber(txCtx)
		if numErr != nil {
			return fmt.Errorf("failed to generate PO number: %w", numErr)
		}
		po.PONumber = number

		if createErr := s.pos.Create(txCtx, &po); createErr != nil {
			return fmt.Errorf("failed to create purchase order: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"po_number":      po.PONumber,
			"request_number": request.RequestNumber,
			"vendor":         vendor.Name,
			"total_amount":   amount.StringFixed(4),
		})
		audit := model.AuditLog{
			UserID:     &creator,
			Action:     model.ActionCreatePurchaseOrder,
			EntityID:   po.ID.String(),
			EntityName: po.PONumber,
			Details:    string(details),
		}
		return s.audits.Log(txCtx, &audit)
	})
	if err != nil {
		return POResponse{}, classifyStoreError(err)
	}

	s.publish(notification.Event{
		EventID:    uuid.NewString(),
		Type:       "po.created",
		RequestID:  requestID.String(),
		PONumber:   po.PONumber,
		ActorID:    creatorID,
		OccurredAt: time.Now(),
	})

	return toPOResponse(&po), nil
}

// UpdateStatus advances a purchase order along DRAFT -> SENT -> CONFIRMED ->
// DELIVERED, or cancels a non-terminal order. Delivery stamps the delivery
// date and bumps the vendor's completed-order counter in the same
// transaction.
func (s *poService) UpdateStatus(ctx context.Context, id, actorID string, req UpdatePOStatusDTO) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, fmt.Errorf("invalid purchase order id: %w", workflow.ErrNotFound)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return POResponse{}, fmt.Errorf("invalid actor id: %w", err)
	}

	var po *model.PurchaseOrder
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		po, findErr = s.pos.FindByID(txCtx, poID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("purchase order %s: %w", poID, workflow.ErrNotFound)
			}
			return findErr
		}

		if po.Status == req.Status {
			return workflow.ErrAlreadyInState
		}
		if po.Status == model.POStatusDelivered || po.Status == model.POStatusCancelled {
			return fmt.Errorf("purchase order %s is %s: %w", po.PONumber, po.Status, workflow.ErrInvalidState)
		}
		if req.Status != model.POStatusCancelled && poStatusEdges[po.Status] != req.Status {
			return fmt.Errorf("cannot move purchase order from %s to %s: %w",
				po.Status, req.Status, workflow.ErrInvalidState)
		}

		fromStatus := po.Status
		po.Status = req.Status
		if req.Status == model.POStatusDelivered {
			now := time.Now()
			po.DeliveryDate = &now
			if incErr := s.vendors.IncrementTotalOrders(txCtx, po.VendorID); incErr != nil {
				return fmt.Errorf("failed to update vendor order count: %w", incErr)
			}
		}

		if saveErr := s.pos.Update(txCtx, po); saveErr != nil {
			return fmt.Errorf("failed to update purchase order: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"po_number":   po.PONumber,
			"from_status": fromStatus,
			"to_status":   po.Status,
		})
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionUpdatePurchaseOrder,
			EntityID:   po.ID.String(),
			EntityName: po.PONumber,
			Details:    string(details),
		}
		return s.audits.Log(txCtx, &audit)
	})
	if errors.Is(err, workflow.ErrAlreadyInState) {
		// Double-submit: report the unchanged order as success.
		return toPOResponse(po), nil
	}
	if err != nil {
		return POResponse{}, classifyStoreError(err)
	}

	s.publish(notification.Event{
		EventID:    uuid.NewString(),
		Type:       "po.status_changed",
		RequestID:  po.RequestID.String(),
		PONumber:   po.PONumber,
		ToState:    po.Status,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	})

	return toPOResponse(po), nil
}

func (s *poService) GetPurchaseOrder(ctx context.Context, id string) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, fmt.Errorf("invalid purchase order id: %w", workflow.ErrNotFound)
	}

	po, err := s.pos.FindByIDWithRelations(ctx, poID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return POResponse{}, fmt.Errorf("purchase order %s: %w", poID, workflow.ErrNotFound)
		}
		return POResponse{}, classifyStoreError(err)
	}

	return toPOResponse(po), nil
}

func (s *poService) ListPurchaseOrders(ctx context.Context, status string, page, limit int) ([]POResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	orders, total, err := s.pos.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, classifyStoreError(err)
	}

	result := make([]POResponse, 0, len(orders))
	for i := range orders {
		result = append(result, toPOResponse(&orders[i]))
	}
	return result, total, nil
}

func (s *poService) publish(evt notification.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(evt)
}

// --- Helpers ---

func toPOResponse(po *model.PurchaseOrder) POResponse {
	resp := POResponse{
		ID:          po.ID.String(),
		PONumber:    po.PONumber,
		RequestID:   po.RequestID.String(),
		VendorID:    po.VendorID.String(),
		Quantity:    po.Quantity,
		TotalAmount: po.TotalAmount.StringFixed(4),
		Status:      po.Status,
		CreatedAt:   po.CreatedAt.Format(time.RFC3339),
	}
	if po.Request != nil {
		resp.RequestNumber = po.Request.RequestNumber
	}
	if po.Vendor != nil {
		resp.VendorName = po.Vendor.Name
	}
	if po.DeliveryDate != nil {
		d := po.DeliveryDate.Format(time.RFC3339)
		resp.DeliveryDate = &d
	}
	return resp
}
