package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/libflow/internal/graphql"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps backend errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var remote *graphql.RemoteError
	switch {
	case errors.As(err, &remote):
		return &APIError{Code: "BACKEND_ERROR", Message: remote.Message, RecoveryHint: "The library service rejected the query; retry later"}
	case graphql.IsNetwork(err):
		return &APIError{Code: "BACKEND_UNREACHABLE", Message: "library service unreachable", RecoveryHint: "Check that the backend is running"}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}
