package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
)

const (
	// ContextKeyClaims holds the verified *auth.Claims of the caller.
	ContextKeyClaims = "claims"
	// ContextKeyUserID holds the caller's user ID.
	ContextKeyUserID = "user_id"
)

// TokenVerifier turns an access token into claims.
type TokenVerifier interface {
	Authenticate(accessToken string) (*auth.Claims, error)
}

// RequireAuth checks the bearer access token on the request
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			apperrors.Respond(c, apperrors.Authentication(apperrors.ErrCodeUnauthorized, "Authentication required"))
			return
		}

		claims, err := verifier.Authenticate(token)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		// Store claims in context for the access gates and handlers
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyUserID, claims.UserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetClaims retrieves the caller's claims from context
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	claims, ok := GetClaims(c)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}
