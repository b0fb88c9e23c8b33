package policy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

// DecisionRecorder observes authorization outcomes.
type DecisionRecorder interface {
	RecordDecision(action string, allowed bool)
}

// Authorizer resolves the project that owns a resource, loads the actor's
// membership and applies Decide.
type Authorizer struct {
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	log      *slog.Logger
	recorder DecisionRecorder
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithLogger sets the logger used for denials.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authorizer) { a.log = l }
}

// WithDecisionRecorder reports every decision to r.
func WithDecisionRecorder(r DecisionRecorder) Option {
	return func(a *Authorizer) { a.recorder = r }
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(projects repository.ProjectRepository, tasks repository.TaskRepository, opts ...Option) *Authorizer {
	a := &Authorizer{projects: projects, tasks: tasks}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.OrDefault(a.log)
	return a
}

// Authorize returns nil if actor may perform action on ref. Missing claims are
// an AuthenticationError; a denial is an AuthorizationError.
func (a *Authorizer) Authorize(ctx context.Context, actor *auth.Claims, action Action, ref ResourceRef) error {
	if actor == nil {
		return apperrors.Authentication(apperrors.ErrCodeUnauthorized, "authentication required")
	}

	err := a.decide(ctx, actor, action, ref)
	if a.recorder != nil {
		a.recorder.RecordDecision(string(action), err == nil)
	}
	if err != nil && errors.Is(err, apperrors.ErrAuthorization) {
		a.log.Info("access denied",
			"user_id", actor.UserID,
			"action", string(action),
			"resource", string(ref.Kind),
			"resource_id", ref.ID,
		)
	}
	return err
}

func (a *Authorizer) decide(ctx context.Context, actor *auth.Claims, action Action, ref ResourceRef) error {
	subject := Subject{Role: actor.Role}
	if subject.Role == models.RoleSystemAdmin {
		return Decide(subject, action, ref.Kind)
	}

	switch ref.Kind {
	case KindProject:
		membership, err := a.projects.FindMember(ctx, ref.ID, actor.UserID)
		if err != nil {
			return err
		}
		subject.Membership = membership

	case KindTask:
		task, err := a.tasks.FindByID(ctx, ref.ID)
		if err != nil {
			return err
		}
		if task != nil {
			membership, err := a.projects.FindMember(ctx, task.ProjectID, actor.UserID)
			if err != nil {
				return err
			}
			subject.Membership = membership
		}

	case KindUser:
		subject.Self = ref.ID == actor.UserID
	}

	return Decide(subject, action, ref.Kind)
}
