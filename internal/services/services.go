package services

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store         *repository.Store
	Authenticator *auth.Authenticator
	Authorizer    *policy.Authorizer
	Logger        *slog.Logger
}

// Services is the operation surface offered to the HTTP layer and the CLI.
type Services struct {
	Auth     *AuthService
	Users    *UserService
	Projects *ProjectService
	Tasks    *TaskService
	Settings *SettingService
	Import   *ImportService
}

// New wires every service over deps.
func New(deps Deps) *Services {
	deps.Logger = logger.OrDefault(deps.Logger)
	return &Services{
		Auth:     NewAuthService(deps),
		Users:    NewUserService(deps),
		Projects: NewProjectService(deps),
		Tasks:    NewTaskService(deps),
		Settings: NewSettingService(deps),
		Import:   NewImportService(deps),
	}
}

var validate = validator.New()

const (
	maxLoginIDLength     = 100
	maxDisplayNameLength = 200
	maxProjectNameLength = 200
	maxTaskTitleLength   = 500
)

func requireActor(actor *auth.Claims) error {
	if actor == nil {
		return apperrors.Authentication(apperrors.ErrCodeUnauthorized, "authentication required")
	}
	return nil
}

func missingField(name string) error {
	return apperrors.Validation(apperrors.ErrCodeMissingField, name+" is required")
}

func invalidInput(message string) error {
	return apperrors.Validation(apperrors.ErrCodeInvalidInput, message)
}

// requiredText trims s and checks it is non-empty and at most max bytes.
func requiredText(name, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", missingField(name)
	}
	if len(s) > max {
		return "", invalidInput(name + " is too long")
	}
	return s, nil
}

func validEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", missingField("email")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", apperrors.Validation(apperrors.ErrCodeInvalidFormat, "email is not a valid address")
	}
	return email, nil
}
