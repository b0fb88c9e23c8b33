package services

import (
	"context"
	"log/slog"

	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
)

// UserService manages user accounts.
type UserService struct {
	store      *repository.Store
	authorizer *policy.Authorizer
	hasher     *auth.Hasher
	log        *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(deps Deps) *UserService {
	return &UserService{
		store:      deps.Store,
		authorizer: deps.Authorizer,
		hasher:     deps.Authenticator.Hasher(),
		log:        deps.Logger,
	}
}

// CreateUserInput represents parameters to create a user.
type CreateUserInput struct {
	LoginID     string
	DisplayName string
	Email       string
	Password    string
	Role        string
}

// UpdateUserInput lists the fields a user update may change.
type UpdateUserInput struct {
	LoginID     *string
	DisplayName *string
	Email       *string
	Role        *string
}

// newUser validates input and builds a user with a hashed password. Login ID
// and email are checked for uniqueness against users.
func newUser(ctx context.Context, users repository.UserRepository, hasher *auth.Hasher, input CreateUserInput) (*models.User, error) {
	loginID, err := requiredText("login id", input.LoginID, maxLoginIDLength)
	if err != nil {
		return nil, err
	}
	displayName, err := requiredText("display name", input.DisplayName, maxDisplayNameLength)
	if err != nil {
		return nil, err
	}
	email, err := validEmail(input.Email)
	if err != nil {
		return nil, err
	}
	role := models.RoleUser
	if input.Role != "" {
		if role, err = models.ParseRole(input.Role); err != nil {
			return nil, invalidInput(err.Error())
		}
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := ensureUnique(ctx, users, 0, &loginID, &email); err != nil {
		return nil, err
	}

	hashed, err := hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		LoginID:     loginID,
		DisplayName: displayName,
		Email:       email,
		Password:    hashed,
		Role:        role,
	}, nil
}

// ensureUnique rejects a login ID or email already held by a user other than
// selfID. The unique indexes remain the final guard against races.
func ensureUnique(ctx context.Context, users repository.UserRepository, selfID uint64, loginID, email *string) error {
	if loginID != nil {
		existing, err := users.FindByLoginID(ctx, *loginID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return apperrors.Validation(apperrors.ErrCodeAlreadyExists, "login id is already taken")
		}
	}
	if email != nil {
		existing, err := users.FindByEmail(ctx, *email)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return apperrors.Validation(apperrors.ErrCodeAlreadyExists, "email is already registered")
		}
	}
	return nil
}

// Create creates a user. Only system admins may create accounts this way.
func (s *UserService) Create(ctx context.Context, actor *auth.Claims, input CreateUserInput) (*models.User, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateGlobal, policy.System()); err != nil {
		return nil, err
	}

	user, err := newUser(ctx, s.store.Users, s.hasher, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", "user_id", user.ID, "role", string(user.Role), "by", actor.UserID)
	return user, nil
}

// Bootstrap creates a system admin without an acting user. It is meant for
// the operator binary, which runs with direct access to the database file.
func (s *UserService) Bootstrap(ctx context.Context, input CreateUserInput) (*models.User, error) {
	input.Role = string(models.RoleSystemAdmin)
	user, err := newUser(ctx, s.store.Users, s.hasher, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Warn("system admin bootstrapped", "user_id", user.ID)
	return user, nil
}

// Get returns a user. Users may read their own account; system admins any.
func (s *UserService) Get(ctx context.Context, actor *auth.Claims, id uint64) (*models.User, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.User(id)); err != nil {
		return nil, err
	}
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return user, nil
}

// List returns the users the actor can see: everyone for a system admin,
// otherwise the actor and the members of the actor's projects.
func (s *UserService) List(ctx context.Context, actor *auth.Claims) ([]models.User, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.System()); err != nil {
		return nil, err
	}
	if actor.IsSystemAdmin() {
		return s.store.Users.List(ctx)
	}
	return s.store.Users.ListVisibleTo(ctx, actor.UserID)
}

// Update changes profile fields. Users may edit their own profile; changing a
// role needs a system admin.
func (s *UserService) Update(ctx context.Context, actor *auth.Claims, id uint64, input UpdateUserInput) (*models.User, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateSelf, policy.User(id)); err != nil {
		return nil, err
	}
	if input.Role != nil {
		if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateGlobal, policy.System()); err != nil {
			return nil, err
		}
	}

	var upd repository.UserUpdate
	if input.LoginID != nil {
		v, err := requiredText("login id", *input.LoginID, maxLoginIDLength)
		if err != nil {
			return nil, err
		}
		upd.LoginID = &v
	}
	if input.DisplayName != nil {
		v, err := requiredText("display name", *input.DisplayName, maxDisplayNameLength)
		if err != nil {
			return nil, err
		}
		upd.DisplayName = &v
	}
	if input.Email != nil {
		v, err := validEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		upd.Email = &v
	}
	if input.Role != nil {
		role, err := models.ParseRole(*input.Role)
		if err != nil {
			return nil, invalidInput(err.Error())
		}
		upd.Role = &role
	}

	var user *models.User
	err := s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		existing, err := uow.Users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NotFound("user not found")
		}
		if err := ensureUnique(ctx, uow.Users, id, upd.LoginID, upd.Email); err != nil {
			return err
		}
		if _, err := uow.Users.Update(ctx, id, upd); err != nil {
			return err
		}
		user, err = uow.Users.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, actor *auth.Claims, current, next string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := auth.ValidatePassword(next); err != nil {
		return err
	}

	user, err := s.store.Users.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if user == nil || !s.hasher.Compare(user.Password, current) {
		return apperrors.Authentication(apperrors.ErrCodeInvalidCredentials, "current password is incorrect")
	}

	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if _, err := s.store.Users.Update(ctx, user.ID, repository.UserUpdate{Password: &hashed}); err != nil {
		return err
	}

	s.log.Info("password changed", "user_id", user.ID)
	return nil
}

// Delete removes a user. Memberships go with the user and assigned tasks are
// left unassigned; a user who still owns projects cannot be deleted.
func (s *UserService) Delete(ctx context.Context, actor *auth.Claims, id uint64) (bool, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateGlobal, policy.System()); err != nil {
		return false, err
	}

	deleted, err := s.store.Users.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info("user deleted", "user_id", id, "by", actor.UserID)
	}
	return deleted, nil
}
