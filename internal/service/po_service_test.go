package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestPOService() (*mockPORepo, *mockRequestRepo, *mockVendorRepo, *mockAuditRepo, *captureNotifier, POService) {
	pos := new(mockPORepo)
	requests := new(mockRequestRepo)
	vendors := new(mockVendorRepo)
	audits := new(mockAuditRepo)
	notifier := new(captureNotifier)
	svc := NewPOService(pos, requests, vendors, audits, stubTxManager{}, notifier)
	return pos, requests, vendors, audits, notifier, svc
}

func approvedRequest() *model.Request {
	return &model.Request{
		ID:            uuid.New(),
		RequestNumber: "REQ-20260830-00003",
		ItemName:      "Office chairs",
		Quantity:      25,
		State:         model.StateApproved,
		Version:       4,
	}
}

func activeVendor() *model.Vendor {
	return &model.Vendor{
		ID:     uuid.New(),
		Name:   "Contoso Supplies",
		Status: model.VendorActive,
	}
}

func TestCreatePurchaseOrderSucceeds(t *testing.T) {
	pos, requests, vendors, audits, notifier, svc := newTestPOService()
	req := approvedRequest()
	vendor := activeVendor()

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
	pos.On("CountActiveByRequest", mock.Anything, req.ID).Return(int64(0), nil)
	pos.On("NextPONumber", mock.Anything).Return("PO-20260830-00001", nil)
	pos.On("Create", mock.Anything, mock.MatchedBy(func(po *model.PurchaseOrder) bool {
		return po.Status == model.POStatusDraft && po.PONumber == "PO-20260830-00001"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.PurchaseOrder).ID = uuid.New()
	}).Return(nil)
	audits.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	resp, err := svc.CreatePurchaseOrder(context.Background(), uuid.NewString(), CreatePODTO{
		RequestID:   req.ID.String(),
		VendorID:    vendor.ID.String(),
		Quantity:    25,
		TotalAmount: "1299.50",
	})

	assert.NoError(t, err)
	assert.Equal(t, model.POStatusDraft, resp.Status)
	assert.Equal(t, "PO-20260830-00001", resp.PONumber)
	assert.Equal(t, "1299.5000", resp.TotalAmount)

	events := notifier.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, "po.created", events[0].Type)
	pos.AssertExpectations(t)
}

func TestCreatePurchaseOrderRequiresApprovedRequest(t *testing.T) {
	pos, requests, _, _, notifier, svc := newTestPOService()
	req := approvedRequest()
	req.State = model.StateReviewed

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := svc.CreatePurchaseOrder(context.Background(), uuid.NewString(), CreatePODTO{
		RequestID:   req.ID.String(),
		VendorID:    uuid.NewString(),
		Quantity:    1,
		TotalAmount: "10",
	})

	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	pos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.Events())
}

func TestCreatePurchaseOrderRejectsSecondActiveOrder(t *testing.T) {
	pos, requests, vendors, _, _, svc := newTestPOService()
	req := approvedRequest()
	vendor := activeVendor()

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
	pos.On("CountActiveByRequest", mock.Anything, req.ID).Return(int64(1), nil)

	_, err := svc.CreatePurchaseOrder(context.Background(), uuid.NewString(), CreatePODTO{
		RequestID:   req.ID.String(),
		VendorID:    vendor.ID.String(),
		Quantity:    5,
		TotalAmount: "100",
	})

	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	pos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePurchaseOrderRejectsInactiveVendor(t *testing.T) {
	pos, requests, vendors, _, _, svc := newTestPOService()
	req := approvedRequest()
	vendor := activeVendor()
	vendor.Status = model.VendorInactive

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)

	_, err := svc.CreatePurchaseOrder(context.Background(), uuid.NewString(), CreatePODTO{
		RequestID:   req.ID.String(),
		VendorID:    vendor.ID.String(),
		Quantity:    5,
		TotalAmount: "100",
	})

	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	pos.AssertNotCalled(t, "CountActiveByRequest", mock.Anything, mock.Anything)
}

func TestCreatePurchaseOrderRejectsNegativeAmount(t *testing.T) {
	_, _, _, _, _, svc := newTestPOService()

	_, err := svc.CreatePurchaseOrder(context.Background(), uuid.NewString(), CreatePODTO{
		RequestID:   uuid.NewString(),
		VendorID:    uuid.NewString(),
		Quantity:    5,
		TotalAmount: "-10.00",
	})

	assert.Error(t, err)
}

func TestUpdateStatusFollowsForwardPath(t *testing.T) {
	pos, _, _, audits, notifier, svc := newTestPOService()
	po := &model.PurchaseOrder{
		ID:          uuid.New(),
		PONumber:    "PO-20260830-00002",
		RequestID:   uuid.New(),
		VendorID:    uuid.New(),
		Status:      model.POStatusDraft,
		TotalAmount: decimal.NewFromInt(500),
	}

	pos.On("FindByID", mock.Anything, po.ID).Return(po, nil)
	pos.On("Update", mock.Anything, mock.MatchedBy(func(p *model.PurchaseOrder) bool {
		return p.Status == model.POStatusSent
	})).Return(nil)
	audits.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	resp, err := svc.UpdateStatus(context.Background(), po.ID.String(), uuid.NewString(), UpdatePOStatusDTO{
		Status: model.POStatusSent,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.POStatusSent, resp.Status)

	events := notifier.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, "po.status_changed", events[0].Type)
}

func TestUpdateStatusRejectsSkippedStage(t *testing.T) {
	pos, _, _, _, _, svc := newTestPOService()
	po := &model.PurchaseOrder{
		ID:          uuid.New(),
		Status:      model.POStatusDraft,
		TotalAmount: decimal.NewFromInt(500),
	}

	pos.On("FindByID", mock.Anything, po.ID).Return(po, nil)

	_, err := svc.UpdateStatus(context.Background(), po.ID.String(), uuid.NewString(), UpdatePOStatusDTO{
		Status: model.POStatusConfirmed,
	})

	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	pos.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateStatusDeliveryStampsDateAndBumpsVendor(t *testing.T) {
	pos, _, vendors, audits, _, svc := newTestPOService()
	vendorID := uuid.New()
	po := &model.PurchaseOrder{
		ID:          uuid.New(),
		PONumber:    "PO-20260830-00004",
		RequestID:   uuid.New(),
		VendorID:    vendorID,
		Status:      model.POStatusConfirmed,
		TotalAmount: decimal.NewFromInt(900),
	}

	pos.On("FindByID", mock.Anything, po.ID).Return(po, nil)
	vendors.On("IncrementTotalOrders", mock.Anything, vendorID).Return(nil)
	pos.On("Update", mock.Anything, mock.MatchedBy(func(p *model.PurchaseOrder) bool {
		return p.Status == model.POStatusDelivered && p.DeliveryDate != nil
	})).Return(nil)
	audits.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	resp, err := svc.UpdateStatus(context.Background(), po.ID.String(), uuid.NewString(), UpdatePOStatusDTO{
		Status: model.POStatusDelivered,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.POStatusDelivered, resp.Status)
	assert.NotNil(t, resp.DeliveryDate)
	vendors.AssertExpectations(t)
}

func TestUpdateStatusCancelFromNonTerminal(t *testing.T) {
	pos, _, _, audits, _, svc := newTestPOService()
	po := &model.PurchaseOrder{
		ID:          uuid.New(),
		Status:      model.POStatusSent,
		TotalAmount: decimal.NewFromInt(300),
	}

	pos.On("FindByID", mock.Anything, po.ID).Return(po, nil)
	pos.On("Update", mock.Anything, mock.MatchedBy(func(p *model.PurchaseOrder) bool {
		return p.Status == model.POStatusCancelled
	})).Return(nil)
	audits.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	resp, err := svc.UpdateStatus(context.Background(), po.ID.String(), uuid.NewString(), UpdatePOStatusDTO{
		Status: model.POStatusCancelled,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.POStatusCancelled, resp.Status)
}

func TestUpdateStatusTerminalOrderIsFrozen(t *testing.T) {
	pos, _, _, _, _, svc := newTestPOService()
	po := &model.PurchaseOrder{
		ID:          uuid.New(),
		Status:      model.POStatusDelivered,
		TotalAmount: decimal.NewFromInt(300),
	}

	pos.On("FindByID", mock.Anything, po.ID).Return(po, nil)

	_, err := svc.UpdateStatus(context.Background(), po.ID.String(), uuid.NewString(), UpdatePOStatusDTO{
		Status: model.POStatusCancelled,
	})

	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	pos, _, _, audits, notifier, svc := newTestPOService()
	po := &model.PurchaseOrder{
		ID:          uuid.New(),
		Status:      model.POStatusSent,
		TotalAmount: decimal.NewFromInt(300),
	}

	pos.On("FindByID", mock.Anything, po.ID).Return(po, nil)

	resp, err := svc.UpdateStatus(context.Background(), po.ID.String(), uuid.NewString(), UpdatePOStatusDTO{
		Status: model.POStatusSent,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.POStatusSent, resp.Status)
	pos.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.Events())
}
