// Package policy decides whether an actor may perform an action on a resource.
//
// Decisions are computed from the actor's global role and the membership row
// of the project that owns the resource. Nothing is cached between calls, so a
// revoked membership is denied on the very next request.
package policy

import (
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
)

// Action is the category of operation being authorized.
type Action string

const (
	ActionRead             Action = "read"
	ActionMutateTask       Action = "mutate-task"
	ActionMutateProject    Action = "mutate-project"
	ActionDeleteProject    Action = "delete-project"
	ActionMutateMembership Action = "mutate-membership"
	ActionCreateProject    Action = "create-project"
	ActionMutateSelf       Action = "mutate-self"
	ActionMutateGlobal     Action = "mutate-global"
)

// ResourceKind is the type of resource an action targets.
type ResourceKind string

const (
	KindSystem  ResourceKind = "system"
	KindProject ResourceKind = "project"
	KindTask    ResourceKind = "task"
	KindUser    ResourceKind = "user"
)

// ResourceRef identifies the target of an action.
type ResourceRef struct {
	Kind ResourceKind
	ID   uint64
}

// System refers to process-wide state: users, settings, import and reset.
func System() ResourceRef { return ResourceRef{Kind: KindSystem} }

// Project refers to a project and everything it contains.
func Project(id uint64) ResourceRef { return ResourceRef{Kind: KindProject, ID: id} }

// Task refers to a single task; its project is resolved at decision time.
func Task(id uint64) ResourceRef { return ResourceRef{Kind: KindTask, ID: id} }

// User refers to a user account.
func User(id uint64) ResourceRef { return ResourceRef{Kind: KindUser, ID: id} }

// Subject is everything Decide knows about the actor for one decision.
type Subject struct {
	Role models.Role
	// Membership is the actor's row in the owning project, nil if none.
	Membership *models.ProjectMember
	// Self is set when a user resource is the actor's own account.
	Self bool
}

func notMember() error {
	return apperrors.Authorization(apperrors.ErrCodeNotProjectMember, "you are not a member of this project")
}

func insufficient() error {
	return apperrors.Authorization(apperrors.ErrCodeInsufficientPermissions, "insufficient permissions")
}

// Decide applies the access rules in order and returns nil to allow or an
// AuthorizationError to deny.
func Decide(s Subject, action Action, kind ResourceKind) error {
	if s.Role == models.RoleSystemAdmin {
		return nil
	}

	switch kind {
	case KindProject, KindTask:
		if s.Membership == nil {
			return notMember()
		}
		switch action {
		case ActionMutateProject, ActionDeleteProject, ActionMutateMembership:
			if !s.Membership.IsAdmin {
				return insufficient()
			}
			return nil
		case ActionRead, ActionMutateTask:
			return nil
		}
		return insufficient()

	case KindUser:
		if s.Self && (action == ActionRead || action == ActionMutateSelf) {
			return nil
		}
		return insufficient()

	case KindSystem:
		if action == ActionRead || action == ActionCreateProject {
			return nil
		}
		return insufficient()
	}

	return insufficient()
}
