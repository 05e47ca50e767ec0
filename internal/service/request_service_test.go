package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func newTestRequestService() (*mockRequestRepo, *mockActionRepo, *mockAuditRepo, *captureNotifier, RequestService) {
	requests := new(mockRequestRepo)
	actions := new(mockActionRepo)
	audits := new(mockAuditRepo)
	notifier := new(captureNotifier)
	svc := NewRequestService(requests, actions, audits, stubTxManager{}, notifier)
	return requests, actions, audits, notifier, svc
}

func pendingCheckRequest() *model.Request {
	return &model.Request{
		ID:             uuid.New(),
		RequestNumber:  "REQ-20260830-00001",
		ItemName:       "Dell Latitude 5440",
		Quantity:       10,
		Department:     "IT",
		InitiatorID:    uuid.New(),
		State:          model.StatePendingCheck,
		Priority:       model.PriorityHigh,
		Version:        1,
		StateEnteredAt: time.Now().Add(-48 * time.Hour),
		CreatedAt:      time.Now().Add(-48 * time.Hour),
	}
}

func TestCreateRequestEntersPendingCheck(t *testing.T) {
	requests, _, audits, notifier, svc := newTestRequestService()

	requests.On("NextRequestNumber", mock.Anything).Return("REQ-20260830-00007", nil)
	requests.On("Create", mock.Anything, mock.AnythingOfType("*model.Request")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Request).ID = uuid.New()
		}).Return(nil)
	audits.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	resp, err := svc.CreateRequest(context.Background(), uuid.NewString(), CreateRequestDTO{
		ItemName:   "Projector",
		Quantity:   2,
		Department: "Finance",
		Priority:   model.PriorityMedium,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.StatePendingCheck, resp.State)
	assert.Equal(t, "REQ-20260830-00007", resp.RequestNumber)
	assert.Equal(t, int64(1), resp.Version)

	events := notifier.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, "request.created", events[0].Type)
	requests.AssertExpectations(t)
	audits.AssertExpectations(t)
}

func TestCreateRequestInvalidInitiator(t *testing.T) {
	_, _, _, notifier, svc := newTestRequestService()

	_, err := svc.CreateRequest(context.Background(), "not-a-uuid", CreateRequestDTO{
		ItemName:   "Projector",
		Quantity:   1,
		Department: "Finance",
		Priority:   model.PriorityLow,
	})

	assert.Error(t, err)
	assert.Empty(t, notifier.Events())
}

func TestTransitionCheckSucceeds(t *testing.T) {
	requests, actions, audits, notifier, svc := newTestRequestService()
	req := pendingCheckRequest()
	actorID := uuid.NewString()

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	requests.On("UpdateStateCAS", mock.Anything, req.ID, int64(1), model.StateChecked, mock.AnythingOfType("time.Time")).
		Return(int64(1), nil)
	actions.On("CountByRequest", mock.Anything, req.ID).Return(int64(0), nil)
	actions.On("Append", mock.Anything, mock.MatchedBy(func(a *model.ApprovalAction) bool {
		return a.Seq == 1 &&
			a.FromState == model.StatePendingCheck &&
			a.ToState == model.StateChecked &&
			a.ActorRole == model.RoleChecker
	})).Return(nil)
	audits.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	resp, err := svc.Transition(context.Background(), req.ID.String(), model.RoleChecker, actorID, TransitionDTO{
		Action:  model.ActionCheck,
		Comment: "stock verified",
	})

	assert.NoError(t, err)
	assert.Equal(t, model.StateChecked, resp.State)
	assert.Equal(t, int64(2), resp.Version)

	events := notifier.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, "request.transitioned", events[0].Type)
	assert.Equal(t, model.StatePendingCheck, events[0].FromState)
	assert.Equal(t, model.StateChecked, events[0].ToState)
	requests.AssertExpectations(t)
	actions.AssertExpectations(t)
}

func TestTransitionForbiddenWritesNothing(t *testing.T) {
	requests, actions, _, notifier, svc := newTestRequestService()
	req := pendingCheckRequest()

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := svc.Transition(context.Background(), req.ID.String(), model.RoleStaff, uuid.NewString(), TransitionDTO{
		Action: model.ActionCheck,
	})

	assert.ErrorIs(t, err, workflow.ErrForbidden)
	requests.AssertNotCalled(t, "UpdateStateCAS", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	actions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.Events())
}

func TestTransitionInvalidFromState(t *testing.T) {
	requests, actions, _, _, svc := newTestRequestService()
	req := pendingCheckRequest()
	req.State = model.StateApproved

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	_, err := svc.Transition(context.Background(), req.ID.String(), model.RoleChecker, uuid.NewString(), TransitionDTO{
		Action: model.ActionCheck,
	})

	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	actions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestTransitionAlreadyInStateIsNoOp(t *testing.T) {
	requests, actions, audits, notifier, svc := newTestRequestService()
	req := pendingCheckRequest()
	req.State = model.StateChecked
	req.Version = 2

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	resp, err := svc.Transition(context.Background(), req.ID.String(), model.RoleChecker, uuid.NewString(), TransitionDTO{
		Action: model.ActionCheck,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.StateChecked, resp.State)
	assert.Equal(t, int64(2), resp.Version)

	// No ledger entry, no audit row, no event for the idempotent replay.
	requests.AssertNotCalled(t, "UpdateStateCAS", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	actions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.Events())
}

func TestTransitionConflictRetriesThenSucceeds(t *testing.T) {
	requests, actions, audits, _, svc := newTestRequestService()
	req := pendingCheckRequest()

	// First read loses the CAS race; the re-read sees the bumped version and
	// the second attempt lands.
	stale := *req
	fresh := *req
	fresh.Version = 2

	requests.On("FindByID", mock.Anything, req.ID).Return(&stale, nil).Once()
	requests.On("FindByID", mock.Anything, req.ID).Return(&fresh, nil).Once()
	requests.On("UpdateStateCAS", mock.Anything, req.ID, int64(1), model.StateChecked, mock.AnythingOfType("time.Time")).
		Return(int64(0), nil).Once()
	requests.On("UpdateStateCAS", mock.Anything, req.ID, int64(2), model.StateChecked, mock.AnythingOfType("time.Time")).
		Return(int64(1), nil).Once()
	actions.On("CountByRequest", mock.Anything, req.ID).Return(int64(1), nil)
	actions.On("Append", mock.Anything, mock.MatchedBy(func(a *model.ApprovalAction) bool {
		return a.Seq == 2
	})).Return(nil)
	audits.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	resp, err := svc.Transition(context.Background(), req.ID.String(), model.RoleChecker, uuid.NewString(), TransitionDTO{
		Action: model.ActionCheck,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.StateChecked, resp.State)
	assert.Equal(t, int64(3), resp.Version)
	requests.AssertExpectations(t)
}

func TestTransitionConflictExhaustsRetries(t *testing.T) {
	requests, _, _, notifier, svc := newTestRequestService()
	req := pendingCheckRequest()

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	requests.On("UpdateStateCAS", mock.Anything, req.ID, int64(1), model.StateChecked, mock.AnythingOfType("time.Time")).
		Return(int64(0), nil)

	_, err := svc.Transition(context.Background(), req.ID.String(), model.RoleChecker, uuid.NewString(), TransitionDTO{
		Action: model.ActionCheck,
	})

	assert.ErrorIs(t, err, workflow.ErrConflict)
	requests.AssertNumberOfCalls(t, "FindByID", maxConflictRetries)
	assert.Empty(t, notifier.Events())
}

func TestTransitionNotFound(t *testing.T) {
	requests, _, _, _, svc := newTestRequestService()
	id := uuid.New()

	requests.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.Transition(context.Background(), id.String(), model.RoleChecker, uuid.NewString(), TransitionDTO{
		Action: model.ActionCheck,
	})

	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestTransitionUnavailableAfterTransientFailures(t *testing.T) {
	requests, _, _, _, svc := newTestRequestService()
	req := pendingCheckRequest()

	requests.On("FindByID", mock.Anything, req.ID).Return(nil, context.DeadlineExceeded)

	_, err := svc.Transition(context.Background(), req.ID.String(), model.RoleChecker, uuid.NewString(), TransitionDTO{
		Action: model.ActionCheck,
	})

	assert.ErrorIs(t, err, workflow.ErrUnavailable)
	requests.AssertNumberOfCalls(t, "FindByID", maxTransientRetries)
}

func TestHistoryReturnsLedgerInOrder(t *testing.T) {
	requests, actions, _, _, svc := newTestRequestService()
	req := pendingCheckRequest()
	actorID := uuid.New()

	requests.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	actions.On("HistoryByRequest", mock.Anything, req.ID).Return([]model.ApprovalAction{
		{RequestID: req.ID, Seq: 1, ActorID: actorID, ActorRole: model.RoleChecker,
			FromState: model.StatePendingCheck, ToState: model.StateChecked},
		{RequestID: req.ID, Seq: 2, ActorID: actorID, ActorRole: model.RoleReviewer,
			FromState: model.StateChecked, ToState: model.StateReviewed,
			Recommendation: model.RecommendationApprove, Comment: "within budget"},
	}, nil)

	history, err := svc.History(context.Background(), req.ID.String())

	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Seq)
	assert.Equal(t, 2, history[1].Seq)
	assert.Equal(t, "within budget", history[1].Comment)
}

func TestGetRequestNotFound(t *testing.T) {
	requests, _, _, _, svc := newTestRequestService()
	id := uuid.New()

	requests.On("FindByIDWithInitiator", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetRequest(context.Background(), id.String(), model.RoleChecker)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestListByStateIncludesActionHints(t *testing.T) {
	requests, _, _, _, svc := newTestRequestService()
	req := pendingCheckRequest()

	requests.On("List", mock.Anything, mock.Anything).Return([]model.Request{*req}, int64(1), nil)

	result, total, err := svc.ListByState(context.Background(), model.RoleChecker, RequestListFilter{
		State: model.StatePendingCheck,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, result, 1)
	assert.Contains(t, result[0].Actions, model.ActionCheck)
	assert.Contains(t, result[0].Actions, model.ActionReject)
}
