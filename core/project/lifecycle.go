package project

import (
	"fmt"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/user"
)

// transitions lists the statuses a faculty may move a project to, per current status.
// StatusEvaluated is only reached through an evaluation.
var transitions = map[string][]string{
	StatusPending:   {StatusInReview, StatusApproved, StatusRejected},
	StatusInReview:  {StatusApproved, StatusRejected},
	StatusRejected:  {StatusInReview, StatusApproved},
	StatusApproved:  {StatusRejected},
	StatusEvaluated: nil,
}

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("project not found")
	ErrVersionConflict   = core.NewConflictError("project was modified concurrently, reload and retry")
	ErrNotStudent        = core.NewAuthorizationError("only students can create projects")
	ErrNotOwner          = core.NewAuthorizationError("only the project owner can do this")
	ErrNotAssigned       = core.NewAuthorizationError("only the assigned faculty can do this")
	ErrNoAccess          = core.NewAuthorizationError("you do not have access to this project")
	ErrAlreadyEvaluated  = core.NewFieldError("status", "project has already been evaluated")
	ErrNotReadyForReview = core.NewFieldError("progress", "project must be approved with 100% progress to be evaluated")
	ErrEmptyUpdate       = core.NewValidationError(fmt.Errorf("no fields to update"))
)

func IsValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// CanTransition reports whether a faculty may move a project from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to string) error {
	if !IsValidStatus(to) {
		return core.NewFieldError("status", fmt.Sprintf("invalid status %q", to))
	}
	if from == to {
		return core.NewFieldError("status", fmt.Sprintf("project is already %s", to))
	}
	if to == StatusEvaluated {
		return core.NewFieldError("status", "projects are evaluated through the evaluation endpoint")
	}
	if !CanTransition(from, to) {
		return core.NewFieldError("status", fmt.Sprintf("cannot change status from %s to %s", from, to))
	}
	return nil
}

// ActionFor returns the feedback action recorded when a project moves to status.
func ActionFor(status string) string {
	switch status {
	case StatusApproved:
		return ActionApprove
	case StatusRejected:
		return ActionReject
	case StatusInReview:
		return ActionReview
	}
	return ""
}

// IsEvaluable reports whether p meets the evaluation preconditions.
func IsEvaluable(p Project) bool {
	return p.Progress == MaxProgress && (p.Status == StatusApproved || p.Status == StatusEvaluated)
}

func isOwner(sess core.Session, p Project) bool {
	return sess.Role == user.RoleStudent && sess.UserID == p.StudentID
}

func isAssigned(sess core.Session, p Project) bool {
	return sess.Role == user.RoleFaculty && sess.UserID == p.FacultyID
}

func canView(sess core.Session, p Project) bool {
	return isOwner(sess, p) || isAssigned(sess, p) || sess.Role == user.RoleAdmin
}
