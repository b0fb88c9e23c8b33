package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(`{
		"users": [{"id": 1, "login_id": "ada", "display_name": "Ada", "email": "ada@example.com", "password": "secret-pass"}],
		"projects": [{"id": 2, "name": "Engine", "owner_id": 1}],
		"tasks": [{"id": 3, "project_id": 2, "title": "Cards", "start_date": "2025-06-10T00:00:00Z"}],
		"settings": {"theme": "dark"}
	}`))
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "ada", snap.Users[0].LoginID)
	require.Len(t, snap.Tasks, 1)
	require.NotNil(t, snap.Tasks[0].StartDate)
	assert.Equal(t, 2025, snap.Tasks[0].StartDate.Year())
	assert.JSONEq(t, `"dark"`, string(snap.Settings["theme"]))
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"users": [`},
		{"unknown field", `{"unknown": true}`},
		{"invalid email", `{"users": [{"id": 1, "login_id": "x", "display_name": "X", "email": "bad", "password": "p"}]}`},
		{"missing id", `{"projects": [{"name": "p", "owner_id": 1}]}`},
		{"progress out of range", `{"tasks": [{"id": 1, "project_id": 1, "title": "t", "progress": 150}]}`},
		{"unknown status", `{"tasks": [{"id": 1, "project_id": 1, "title": "t", "status": "blocked"}]}`},
		{"unknown role", `{"users": [{"id": 1, "login_id": "x", "display_name": "X", "email": "x@example.com", "password": "p", "role": "root"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}
