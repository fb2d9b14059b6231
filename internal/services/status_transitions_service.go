package services

import (
	"errors"
	"fmt"

	"intihelp/internal/authz"
	"intihelp/internal/models"
)

var (
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrTransitionForbidden = errors.New("role may not perform this transition")
)

// TaskTransitions lists every allowed move as from -> to -> roles allowed to
// perform it. Anything not listed here is illegal.
var TaskTransitions = map[models.TaskStatus]map[models.TaskStatus][]int{
	models.StatusRequested: {
		models.StatusAccepted:  {authz.RoleAssistant},
		models.StatusRejected:  {authz.RoleAssistant},
		models.StatusCancelled: {authz.RoleStudent, authz.RoleAdmin},
	},
	models.StatusAccepted: {
		// Pagada is reached through payment verification only.
		models.StatusPaid:      {authz.RoleAdmin},
		models.StatusCancelled: {authz.RoleStudent, authz.RoleAdmin},
	},
	models.StatusPaid: {
		models.StatusStarted:   {authz.RoleAssistant},
		models.StatusCancelled: {authz.RoleAdmin},
	},
	models.StatusStarted: {
		models.StatusProgressSent: {authz.RoleAssistant},
		models.StatusCompleted:    {authz.RoleAssistant},
	},
	models.StatusProgressSent: {
		models.StatusProgressSent: {authz.RoleAssistant},
		models.StatusCompleted:    {authz.RoleAssistant},
	},
	models.StatusCompleted: {
		models.StatusApproved: {authz.RoleStudent},
		models.StatusDisputed: {authz.RoleStudent},
	},
	models.StatusDisputed: {
		models.StatusStarted:   {authz.RoleAdmin},
		models.StatusApproved:  {authz.RoleAdmin},
		models.StatusCancelled: {authz.RoleAdmin},
	},
	models.StatusApproved: {
		models.StatusRated:         {authz.RoleStudent},
		models.StatusAssistantPaid: {authz.RoleAdmin},
	},
	models.StatusRated: {
		models.StatusAssistantPaid: {authz.RoleAdmin},
	},
	models.StatusRejected:      {},
	models.StatusCancelled:     {},
	models.StatusAssistantPaid: {},
}

// TransitionError describes a refused status change.
type TransitionError struct {
	From   models.TaskStatus
	To     models.TaskStatus
	RoleID int
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %q -> %q (role %s)", e.Err, e.From, e.To, authz.RoleName(e.RoleID))
}

func (e *TransitionError) Unwrap() error { return e.Err }

func canTransition(from, to models.TaskStatus) bool {
	nexts, ok := TaskTransitions[from]
	if !ok {
		return false
	}
	_, ok = nexts[to]
	return ok
}

// CheckTransition validates a move against the table for the given role.
// Illegal moves fail with ErrIllegalTransition whatever the role.
func CheckTransition(from, to models.TaskStatus, roleID int) error {
	if !canTransition(from, to) {
		return &TransitionError{From: from, To: to, RoleID: roleID, Err: ErrIllegalTransition}
	}
	for _, r := range TaskTransitions[from][to] {
		if r == roleID {
			return nil
		}
	}
	return &TransitionError{From: from, To: to, RoleID: roleID, Err: ErrTransitionForbidden}
}

// IsTerminal reports whether no transition leaves status s.
func IsTerminal(s models.TaskStatus) bool {
	return len(TaskTransitions[s]) == 0
}

// NextStatuses lists the statuses a role may move a task to from s.
func NextStatuses(s models.TaskStatus, roleID int) []models.TaskStatus {
	var out []models.TaskStatus
	for _, to := range models.AllTaskStatuses() {
		if CheckTransition(s, to, roleID) == nil {
			out = append(out, to)
		}
	}
	return out
}
