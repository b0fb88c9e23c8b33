package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/policy"
)

// ContextKeyProjectID holds the authorized project ID.
const ContextKeyProjectID = "project_id"

// Authorizer decides whether claims may perform an action on a resource.
type Authorizer interface {
	Authorize(ctx context.Context, actor *auth.Claims, action policy.Action, ref policy.ResourceRef) error
}

// RequireProjectAccess checks that the caller may perform action on the
// project named by the param URL parameter. Must run after RequireAuth.
func RequireProjectAccess(authorizer Authorizer, action policy.Action, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := idParam(c, param, "project")
		if !ok {
			return
		}

		claims, exists := GetClaims(c)
		if !exists {
			apperrors.Respond(c, apperrors.Authentication(apperrors.ErrCodeUnauthorized, "Authentication required"))
			return
		}

		if err := authorizer.Authorize(c.Request.Context(), claims, action, policy.Project(projectID)); err != nil {
			apperrors.Respond(c, err)
			return
		}

		c.Set(ContextKeyProjectID, projectID)
		c.Next()
	}
}

func idParam(c *gin.Context, param, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.Validation(apperrors.ErrCodeInvalidFormat, "Invalid "+name+" ID"))
		return 0, false
	}
	return id, true
}
