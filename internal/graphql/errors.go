package graphql

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned before any I/O when mutation arguments are rejected locally.
var ErrInvalidInput = errors.New("invalid graphql input")

// Error is a single entry of a GraphQL response's errors list.
type Error struct {
	Message   string         `json:"message"`
	Path      []any          `json:"path,omitempty"`
	Locations []Location     `json:"locations,omitempty"`
	Extra     map[string]any `json:"extensions,omitempty"`
}

// Location points into the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// NetworkError reports a transport, status or decoding failure.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("graphql %s: network error (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("graphql %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RemoteError reports an application-level error returned inside a
// GraphQL response body. Message is the first entry's message.
type RemoteError struct {
	Op      string
	Message string
	Errors  []Error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("graphql %s: %s", e.Op, e.Message)
}

// IsNetwork reports whether err is or wraps a *NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRemote reports whether err is or wraps a *RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
