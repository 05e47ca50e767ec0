package workflow

import (
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestValidateHappyPath(t *testing.T) {
	// Walk a request through the full approval and fulfilment chain.
	steps := []struct {
		state  string
		role   string
		action string
		want   string
	}{
		{model.StatePendingCheck, model.RoleChecker, model.ActionCheck, model.StateChecked},
		{model.StateChecked, model.RoleReviewer, model.ActionReview, model.StateReviewed},
		{model.StateReviewed, model.RoleDirectorGeneral, model.ActionApprove, model.StateApproved},
		{model.StateApproved, model.RoleProcurement, model.ActionStartProcurement, model.StateProcurementPending},
		{model.StateProcurementPending, model.RoleProcurement, model.ActionBeginSourcing, model.StateProcurementInProgress},
		{model.StateProcurementInProgress, model.RoleProcurement, model.ActionMarkSourced, model.StateSourced},
		{model.StateSourced, model.RoleProcurement, model.ActionMarkDelivered, model.StateDelivered},
	}

	for _, step := range steps {
		req := &model.Request{State: step.state}
		target, err := Validate(req, step.role, step.action)
		assert.NoError(t, err, "%s by %s from %s", step.action, step.role, step.state)
		assert.Equal(t, step.want, target)
	}
}

func TestValidateForbidden(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		role   string
		action string
	}{
		{"staff cannot check", model.StatePendingCheck, model.RoleStaff, model.ActionCheck},
		{"checker cannot review", model.StateChecked, model.RoleChecker, model.ActionReview},
		{"reviewer cannot approve", model.StateReviewed, model.RoleReviewer, model.ActionApprove},
		{"checker cannot start procurement", model.StateApproved, model.RoleChecker, model.ActionStartProcurement},
		{"procurement cannot reject", model.StateSourced, model.RoleProcurement, model.ActionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &model.Request{State: tt.state}
			_, err := Validate(req, tt.role, tt.action)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestValidateInvalidTransition(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		role   string
		action string
	}{
		{"check from reviewed", model.StateReviewed, model.RoleChecker, model.ActionCheck},
		{"review before check", model.StatePendingCheck, model.RoleReviewer, model.ActionReview},
		{"approve before review", model.StateChecked, model.RoleDirectorGeneral, model.ActionApprove},
		{"deliver before sourcing", model.StateProcurementPending, model.RoleProcurement, model.ActionMarkDelivered},
		{"reject a delivered request", model.StateDelivered, model.RoleChecker, model.ActionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &model.Request{State: tt.state}
			_, err := Validate(req, tt.role, tt.action)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestValidateUnknownAction(t *testing.T) {
	req := &model.Request{State: model.StatePendingCheck}
	_, err := Validate(req, model.RoleChecker, "ESCALATE")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidateAlreadyInState(t *testing.T) {
	// Double-submit of the same action reports AlreadyInState so the engine
	// can treat it as an idempotent success.
	req := &model.Request{State: model.StateChecked}
	target, err := Validate(req, model.RoleChecker, model.ActionCheck)
	assert.ErrorIs(t, err, ErrAlreadyInState)
	assert.Equal(t, model.StateChecked, target)
}

func TestValidateRejectFromAnyNonTerminal(t *testing.T) {
	nonTerminal := []string{
		model.StateDraft,
		model.StatePendingCheck,
		model.StateChecked,
		model.StatePendingReview,
		model.StateReviewed,
		model.StateApproved,
		model.StateProcurementPending,
		model.StateProcurementInProgress,
		model.StateSourced,
	}

	for _, state := range nonTerminal {
		for _, role := range []string{model.RoleChecker, model.RoleReviewer, model.RoleDirectorGeneral} {
			req := &model.Request{State: state}
			target, err := Validate(req, role, model.ActionReject)
			assert.NoError(t, err, "REJECT by %s from %s", role, state)
			assert.Equal(t, model.StateRejected, target)
		}
	}
}

func TestValidateLegacyPendingReview(t *testing.T) {
	// PENDING_REVIEW records come from migrated data; the reviewer edge still
	// accepts them.
	req := &model.Request{State: model.StatePendingReview}
	target, err := Validate(req, model.RoleReviewer, model.ActionReview)
	assert.NoError(t, err)
	assert.Equal(t, model.StateReviewed, target)
}

func TestActions(t *testing.T) {
	assert.Equal(t,
		[]string{model.ActionCheck, model.ActionReject},
		Actions(model.StatePendingCheck, model.RoleChecker))

	assert.Equal(t,
		[]string{model.ActionApprove, model.ActionReject},
		Actions(model.StateReviewed, model.RoleDirectorGeneral))

	assert.Equal(t,
		[]string{model.ActionMarkDelivered},
		Actions(model.StateSourced, model.RoleProcurement))

	assert.Empty(t, Actions(model.StateDelivered, model.RoleChecker))
	assert.Empty(t, Actions(model.StatePendingCheck, model.RoleStaff))
}
