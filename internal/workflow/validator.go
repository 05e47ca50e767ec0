package workflow

import (
	"fmt"

	"backend/internal/model"
)

// rule describes one action in the fixed transition table: who may invoke it,
// which states it may leave from, and the single state it lands in.
type rule struct {
	roles []string
	from  []string
	to    string
}

// transitionTable is the full role/edge table for the request lifecycle.
//
//	checker:           PENDING_CHECK            -> CHECKED
//	reviewer:          CHECKED | PENDING_REVIEW -> REVIEWED
//	director_general:  REVIEWED                 -> APPROVED
//	procurement:       APPROVED -> PROCUREMENT_PENDING -> PROCUREMENT_IN_PROGRESS -> SOURCED -> DELIVERED
//	approver roles:    any non-terminal state   -> REJECTED
//
// PENDING_REVIEW has no producer in this codebase; it is accepted on the
// reviewer edge for records migrated from older flows.
var transitionTable = map[string]rule{
	model.ActionCheck: {
		roles: []string{model.RoleChecker},
		from:  []string{model.StatePendingCheck},
		to:    model.StateChecked,
	},
	model.ActionReview: {
		roles: []string{model.RoleReviewer},
		from:  []string{model.StateChecked, model.StatePendingReview},
		to:    model.StateReviewed,
	},
	model.ActionApprove: {
		roles: []string{model.RoleDirectorGeneral},
		from:  []string{model.StateReviewed},
		to:    model.StateApproved,
	},
	model.ActionStartProcurement: {
		roles: []string{model.RoleProcurement},
		from:  []string{model.StateApproved},
		to:    model.StateProcurementPending,
	},
	model.ActionBeginSourcing: {
		roles: []string{model.RoleProcurement},
		from:  []string{model.StateProcurementPending},
		to:    model.StateProcurementInProgress,
	},
	model.ActionMarkSourced: {
		roles: []string{model.RoleProcurement},
		from:  []string{model.StateProcurementInProgress},
		to:    model.StateSourced,
	},
	model.ActionMarkDelivered: {
		roles: []string{model.RoleProcurement},
		from:  []string{model.StateSourced},
		to:    model.StateDelivered,
	},
	model.ActionReject: {
		roles: []string{model.RoleChecker, model.RoleReviewer, model.RoleDirectorGeneral},
		from: []string{
			model.StateDraft,
			model.StatePendingCheck,
			model.StateChecked,
			model.StatePendingReview,
			model.StateReviewed,
			model.StateApproved,
			model.StateProcurementPending,
			model.StateProcurementInProgress,
			model.StateSourced,
		},
		to: model.StateRejected,
	},
}

// Validate is the pure transition validator. It computes the target state for
// (request, actorRole, action) against the fixed table without touching any
// store. Outcomes, in checking order:
//
//	unknown action        -> ErrInvalidTransition
//	role not on the edge  -> ErrForbidden
//	already in target     -> ErrAlreadyInState (engine treats as no-op success)
//	no edge from current  -> ErrInvalidTransition
func Validate(req *model.Request, actorRole, action string) (string, error) {
	r, ok := transitionTable[action]
	if !ok {
		return "", fmt.Errorf("unknown action %q: %w", action, ErrInvalidTransition)
	}

	allowed := false
	for _, role := range r.roles {
		if role == actorRole {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("role %q cannot perform %s: %w", actorRole, action, ErrForbidden)
	}

	if req.State == r.to {
		return r.to, ErrAlreadyInState
	}

	for _, from := range r.from {
		if req.State == from {
			return r.to, nil
		}
	}

	return "", fmt.Errorf("cannot %s from state %s: %w", action, req.State, ErrInvalidTransition)
}

// Actions returns the actions an actor with the given role could attempt from
// the given state. Used by the listing API so the UI can render only the
// buttons that will succeed.
func Actions(state, actorRole string) []string {
	var out []string
	for _, action := range []string{
		model.ActionCheck, model.ActionReview, model.ActionApprove,
		model.ActionStartProcurement, model.ActionBeginSourcing,
		model.ActionMarkSourced, model.ActionMarkDelivered, model.ActionReject,
	} {
		r := transitionTable[action]
		roleOK := false
		for _, role := range r.roles {
			if role == actorRole {
				roleOK = true
				break
			}
		}
		if !roleOK {
			continue
		}
		for _, from := range r.from {
			if state == from {
				out = append(out, action)
				break
			}
		}
	}
	return out
}
