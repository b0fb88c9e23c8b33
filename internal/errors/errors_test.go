package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindsSurviveWrapping(t *testing.T) {
	cause := stderrors.New("UNIQUE constraint failed: users.email")
	err := fmt.Errorf("create user: %w", Integrity("duplicate email", cause))

	assert.ErrorIs(t, err, ErrIntegrityConstraint)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStorage)
	assert.Equal(t, "create user: duplicate email: UNIQUE constraint failed: users.email", err.Error())

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeConflict, appErr.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation(ErrCodeInvalidInput, "bad"), http.StatusBadRequest},
		{Authentication(ErrCodeTokenExpired, "expired"), http.StatusUnauthorized},
		{Authorization(ErrCodeNotProjectMember, "no"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Integrity("dup", nil), http.StatusConflict},
		{Storage("disk", stderrors.New("io")), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	respond := func(err error) (int, map[string]string) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Respond(c, err)
		assert.True(t, c.IsAborted())

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	code, body := respond(Authorization(ErrCodeInsufficientPermissions, "Project admin required"))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, map[string]string{"code": "INSUFFICIENT_PERMISSIONS", "message": "Project admin required"}, body)

	code, body = respond(Storage("read users", stderrors.New("disk I/O error")))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["message"])
	assert.NotContains(t, body["message"], "disk")
}
