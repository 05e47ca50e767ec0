package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"backend/internal/model"
	"backend/internal/notification"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRequestDTO struct {
	ItemName   string `json:"item_name" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
	Department string `json:"department" binding:"required"`
	Priority   string `json:"priority" binding:"required,oneof=LOW MEDIUM HIGH"`
}

type TransitionDTO struct {
	Action         string `json:"action" binding:"required"`
	Comment        string `json:"comment"`
	Recommendation string `json:"recommendation" binding:"omitempty,oneof=APPROVE NEEDS_DISCUSSION"`
}

type RequestListFilter struct {
	State      string
	Department string
	Priority   string
	Search     string
	Page       int
	Limit      int
}

type RequestResponse struct {
	ID             string   `json:"id"`
	RequestNumber  string   `json:"request_number"`
	ItemName       string   `json:"item_name"`
	Quantity       int      `json:"quantity"`
	Department     string   `json:"department"`
	InitiatorID    string   `json:"initiator_id"`
	InitiatorName  string   `json:"initiator_name,omitempty"`
	State          string   `json:"state"`
	Priority       string   `json:"priority"`
	Version        int64    `json:"version"`
	StateEnteredAt string   `json:"state_entered_at"`
	DaysWaiting    int      `json:"days_waiting"`
	CreatedAt      string   `json:"created_at"`
	Actions        []string `json:"actions,omitempty"` // actions the requesting role may attempt
}

type ApprovalActionResponse struct {
	RequestID      string `json:"request_id"`
	Seq            int    `json:"seq"`
	ActorID        string `json:"actor_id"`
	ActorName      string `json:"actor_name,omitempty"`
	ActorRole      string `json:"actor_role"`
	FromState      string `json:"from_state"`
	ToState        string `json:"to_state"`
	Recommendation string `json:"recommendation,omitempty"`
	Comment        string `json:"comment,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// Notifier receives workflow events after a transition commits. Enqueue must
// never block the engine.
type Notifier interface {
	Enqueue(evt notification.Event)
}

// --- Interface ---

type RequestService interface {
	CreateRequest(ctx context.Context, initiatorID string, req CreateRequestDTO) (RequestResponse, error)
	Transition(ctx context.Context, requestID, actorRole, actorID string, req TransitionDTO) (RequestResponse, error)
	GetRequest(ctx context.Context, requestID, actorRole string) (RequestResponse, error)
	ListByState(ctx context.Context, actorRole string, filter RequestListFilter) ([]RequestResponse, int64, error)
	History(ctx context.Context, requestID string) ([]ApprovalActionResponse, error)
}

type requestService struct {
	requests repository.RequestRepository
	actions  repository.ActionRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	notifier Notifier
}

const (
	// maxConflictRetries bounds re-validation after a lost CAS race.
	maxConflictRetries = 3
	// maxTransientRetries bounds backoff retries when the store is unreachable.
	maxTransientRetries = 3
	backoffBase         = 50 * time.Millisecond
)

func NewRequestService(
	requests repository.RequestRepository,
	actions repository.ActionRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	notifier Notifier,
) RequestService {
	return &requestService{
		requests: requests,
		actions:  actions,
		audits:   audits,
		txm:      txm,
		notifier: notifier,
	}
}

// --- Implementation ---

func (s *requestService) CreateRequest(ctx context.Context, initiatorID string, req CreateRequestDTO) (RequestResponse, error) {
	initiator, err := uuid.Parse(initiatorID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid initiator id: %w", err)
	}

	now := time.Now()
	request := model.Request{
		ItemName:       req.ItemName,
		Quantity:       req.Quantity,
		Department:     req.Department,
		InitiatorID:    initiator,
		State:          model.StatePendingCheck,
		Priority:       req.Priority,
		Version:        1,
		StateEnteredAt: now,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		number, numErr := s.requests.NextRequestNumber(txCtx)
		if numErr != nil {
			return fmt.Errorf("failed to generate request number: %w", numErr)
		}
		request.RequestNumber = number

		if createErr := s.requests.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"request_number": request.RequestNumber,
			"item_name":      request.ItemName,
			"department":     request.Department,
			"priority":       request.Priority,
		})
		audit := model.AuditLog{
			UserID:     &initiator,
			Action:     model.ActionCreateRequest,
			EntityID:   request.ID.String(),
			EntityName: request.RequestNumber,
			Details:    string(details),
		}
		return s.audits.Log(txCtx, &audit)
	})
	if err != nil {
		return RequestResponse{}, classifyStoreError(err)
	}

	s.publish(notification.Event{
		EventID:       uuid.NewString(),
		Type:          "request.created",
		RequestID:     request.ID.String(),
		RequestNumber: request.RequestNumber,
		ToState:       request.State,
		ActorID:       initiatorID,
		OccurredAt:    now,
	})

	return toRequestResponse(&request, ""), nil
}

// Transition moves a request along the workflow graph on behalf of an actor.
// Business-rule rejections (InvalidTransition, Forbidden) return with zero
// writes. A lost CAS race re-reads and re-validates up to maxConflictRetries
// before surfacing Conflict. AlreadyInState is a successful no-op.
func (s *requestService) Transition(ctx context.Context, requestID, actorRole, actorID string, req TransitionDTO) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", workflow.ErrNotFound)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid actor id: %w", err)
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		request, loadErr := s.loadRequest(ctx, id)
		if loadErr != nil {
			return RequestResponse{}, loadErr
		}

		target, valErr := workflow.Validate(request, actorRole, req.Action)
		if errors.Is(valErr, workflow.ErrAlreadyInState) {
			// Idempotent double-submit: success, no writes, no ledger entry.
			return toRequestResponse(request, actorRole), nil
		}
		if valErr != nil {
			return RequestResponse{}, valErr
		}

		now := time.Now()
		txErr := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			rows, casErr := s.requests.UpdateStateCAS(txCtx, request.ID, request.Version, target, now)
			if casErr != nil {
				return casErr
			}
			if rows == 0 {
				return workflow.ErrConflict
			}

			count, countErr := s.actions.CountByRequest(txCtx, request.ID)
			if countErr != nil {
				return countErr
			}
			action := model.ApprovalAction{
				RequestID:      request.ID,
				Seq:            int(count) + 1,
				ActorID:        actor,
				ActorRole:      actorRole,
				FromState:      request.State,
				ToState:        target,
				Recommendation: req.Recommendation,
				Comment:        req.Comment,
			}
			if appendErr := s.actions.Append(txCtx, &action); appendErr != nil {
				return appendErr
			}

			details, _ := json.Marshal(map[string]interface{}{
				"request_number": request.RequestNumber,
				"action":         req.Action,
				"from_state":     request.State,
				"to_state":       target,
			})
			audit := model.AuditLog{
				UserID:     &actor,
				Action:     model.ActionTransitionRequest,
				EntityID:   request.ID.String(),
				EntityName: request.RequestNumber,
				Details:    string(details),
			}
			return s.audits.Log(txCtx, &audit)
		})

		if errors.Is(txErr, workflow.ErrConflict) {
			// Lost the race; re-read current state and re-validate.
			continue
		}
		if txErr != nil {
			return RequestResponse{}, classifyStoreError(txErr)
		}

		s.publish(notification.Event{
			EventID:       uuid.NewString(),
			Type:          "request.transitioned",
			RequestID:     request.ID.String(),
			RequestNumber: request.RequestNumber,
			FromState:     request.State,
			ToState:       target,
			ActorID:       actorID,
			OccurredAt:    now,
		})

		request.State = target
		request.Version++
		request.StateEnteredAt = now
		return toRequestResponse(request, actorRole), nil
	}

	return RequestResponse{}, workflow.ErrConflict
}

func (s *requestService) GetRequest(ctx context.Context, requestID, actorRole string) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", workflow.ErrNotFound)
	}

	request, err := s.requests.FindByIDWithInitiator(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, fmt.Errorf("request %s: %w", id, workflow.ErrNotFound)
		}
		return RequestResponse{}, classifyStoreError(err)
	}

	return toRequestResponse(request, actorRole), nil
}

func (s *requestService) ListByState(ctx context.Context, actorRole string, filter RequestListFilter) ([]RequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	requests, total, err := s.requests.List(ctx, repository.RequestFilter{
		State:      filter.State,
		Department: filter.Department,
		Priority:   filter.Priority,
		Search:     filter.Search,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, 0, classifyStoreError(err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, toRequestResponse(&requests[i], actorRole))
	}
	return result, total, nil
}

func (s *requestService) History(ctx context.Context, requestID string) ([]ApprovalActionResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", workflow.ErrNotFound)
	}

	if _, err := s.loadRequest(ctx, id); err != nil {
		return nil, err
	}

	actions, err := s.actions.HistoryByRequest(ctx, id)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	result := make([]ApprovalActionResponse, 0, len(actions))
	for _, a := range actions {
		entry := ApprovalActionResponse{
			RequestID:      a.RequestID.String(),
			Seq:            a.Seq,
			ActorID:        a.ActorID.String(),
			ActorRole:      a.ActorRole,
			FromState:      a.FromState,
			ToState:        a.ToState,
			Recommendation: a.Recommendation,
			Comment:        a.Comment,
			Timestamp:      a.CreatedAt.Format(time.RFC3339),
		}
		if a.Actor != nil {
			entry.ActorName = a.Actor.Username
		}
		result = append(result, entry)
	}
	return result, nil
}

// loadRequest reads a request, retrying with exponential backoff when the
// store looks transiently unreachable. NotFound is returned immediately.
func (s *requestService) loadRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var lastErr error
	delay := backoffBase
	for attempt := 0; attempt < maxTransientRetries; attempt++ {
		request, err := s.requests.FindByID(ctx, id)
		if err == nil {
			return request, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, workflow.ErrNotFound)
		}
		if !isTransient(err) {
			return nil, classifyStoreError(err)
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%v: %w", ctx.Err(), workflow.ErrUnavailable)
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("%v: %w", lastErr, workflow.ErrUnavailable)
}

func (s *requestService) publish(evt notification.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(evt)
}

// --- Helpers ---

// isTransient reports whether a store error is worth retrying with backoff.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// classifyStoreError maps raw store errors into the workflow taxonomy so
// callers only ever see sentinel errors.
func classifyStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%v: %w", err, workflow.ErrNotFound)
	case workflow.IsBusinessRuleError(err),
		errors.Is(err, workflow.ErrConflict),
		errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, workflow.ErrUnavailable),
		errors.Is(err, workflow.ErrAlreadyInState):
		return err
	case isTransient(err):
		return fmt.Errorf("%v: %w", err, workflow.ErrUnavailable)
	default:
		return err
	}
}

func toRequestResponse(r *model.Request, actorRole string) RequestResponse {
	resp := RequestResponse{
		ID:             r.ID.String(),
		RequestNumber:  r.RequestNumber,
		ItemName:       r.ItemName,
		Quantity:       r.Quantity,
		Department:     r.Department,
		InitiatorID:    r.InitiatorID.String(),
		State:          r.State,
		Priority:       r.Priority,
		Version:        r.Version,
		StateEnteredAt: r.StateEnteredAt.Format(time.RFC3339),
		DaysWaiting:    int(time.Since(r.StateEnteredAt).Hours() / 24),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.Initiator != nil {
		resp.InitiatorName = r.Initiator.Username
	}
	if actorRole != "" && !model.IsTerminalState(r.State) {
		resp.Actions = workflow.Actions(r.State, actorRole)
	}
	return resp
}
