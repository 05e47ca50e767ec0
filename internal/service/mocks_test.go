package service

import (
	"context"
	"sync"
	"time"

	"backend/internal/model"
	"backend/internal/notification"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// stubTxManager runs the callback directly; transactional scoping is the
// repository layer's concern and not under test here.
type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// captureNotifier records enqueued events for assertions.
type captureNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *captureNotifier) Enqueue(evt notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *captureNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Event, len(n.events))
	copy(out, n.events)
	return out
}

// --- repository mocks ---

type mockRequestRepo struct{ mock.Mock }

func (m *mockRequestRepo) Create(ctx context.Context, req *model.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*model.Request), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRequestRepo) FindByIDWithInitiator(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*model.Request), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]model.Request, int64, error) {
	args := m.Called(ctx, filter)
	var requests []model.Request
	if r := args.Get(0); r != nil {
		requests = r.([]model.Request)
	}
	return requests, args.Get(1).(int64), args.Error(2)
}

func (m *mockRequestRepo) UpdateStateCAS(ctx context.Context, id uuid.UUID, fromVersion int64, newState string, enteredAt time.Time) (int64, error) {
	args := m.Called(ctx, id, fromVersion, newState, enteredAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRequestRepo) NextRequestNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockActionRepo struct{ mock.Mock }

func (m *mockActionRepo) Append(ctx context.Context, action *model.ApprovalAction) error {
	return m.Called(ctx, action).Error(0)
}

func (m *mockActionRepo) HistoryByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ApprovalAction, error) {
	args := m.Called(ctx, requestID)
	var actions []model.ApprovalAction
	if r := args.Get(0); r != nil {
		actions = r.([]model.ApprovalAction)
	}
	return actions, args.Error(1)
}

func (m *mockActionRepo) CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(int64), args.Error(1)
}

type mockAuditRepo struct{ mock.Mock }

func (m *mockAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, page, limit)
	var logs []model.AuditLog
	if r := args.Get(0); r != nil {
		logs = r.([]model.AuditLog)
	}
	return logs, args.Get(1).(int64), args.Error(2)
}

type mockPORepo struct{ mock.Mock }

func (m *mockPORepo) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return m.Called(ctx, po).Error(0)
}

func (m *mockPORepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*model.PurchaseOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPORepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*model.PurchaseOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPORepo) List(ctx context.Context, status string, page, limit int) ([]model.PurchaseOrder, int64, error) {
	args := m.Called(ctx, status, page, limit)
	var orders []model.PurchaseOrder
	if r := args.Get(0); r != nil {
		orders = r.([]model.PurchaseOrder)
	}
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *mockPORepo) Update(ctx context.Context, po *model.PurchaseOrder) error {
	return m.Called(ctx, po).Error(0)
}

func (m *mockPORepo) CountActiveByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPORepo) NextPONumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockVendorRepo struct{ mock.Mock }

func (m *mockVendorRepo) Create(ctx context.Context, vendor *model.Vendor) error {
	return m.Called(ctx, vendor).Error(0)
}

func (m *mockVendorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*model.Vendor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVendorRepo) FindByName(ctx context.Context, name string) (*model.Vendor, error) {
	args := m.Called(ctx, name)
	if r := args.Get(0); r != nil {
		return r.(*model.Vendor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVendorRepo) List(ctx context.Context, status, category string, page, limit int) ([]model.Vendor, int64, error) {
	args := m.Called(ctx, status, category, page, limit)
	var vendors []model.Vendor
	if r := args.Get(0); r != nil {
		vendors = r.([]model.Vendor)
	}
	return vendors, args.Get(1).(int64), args.Error(2)
}

func (m *mockVendorRepo) Update(ctx context.Context, vendor *model.Vendor) error {
	return m.Called(ctx, vendor).Error(0)
}

func (m *mockVendorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockVendorRepo) IncrementTotalOrders(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
