package middleware

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/policy"
)

// ContextKeyTaskID holds the authorized task ID.
const ContextKeyTaskID = "task_id"

// RequireTaskAccess checks that the caller may perform action on the task
// named by the param URL parameter. Access follows membership of the task's
// project; a missing task is denied rather than reported as absent.
func RequireTaskAccess(authorizer Authorizer, action policy.Action, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := idParam(c, param, "task")
		if !ok {
			return
		}

		claims, exists := GetClaims(c)
		if !exists {
			apperrors.Respond(c, apperrors.Authentication(apperrors.ErrCodeUnauthorized, "Authentication required"))
			return
		}

		if err := authorizer.Authorize(c.Request.Context(), claims, action, policy.Task(taskID)); err != nil {
			apperrors.Respond(c, err)
			return
		}

		c.Set(ContextKeyTaskID, taskID)
		c.Next()
	}
}
