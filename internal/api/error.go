package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is returned for any non-2xx response.
type Error struct {
	Status  int
	Message string
	Body    json.RawMessage // parsed JSON body, nil if none
}

func (e *Error) Error() string {
	return e.Message
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	return false
}

func newError(status int, body json.RawMessage) *Error {
	return &Error{
		Status:  status,
		Message: errorMessage(status, body),
		Body:    body,
	}
}

// errorMessage prefers the body's "message" field, then "error".
func errorMessage(status int, body json.RawMessage) string {
	var fields struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if body != nil && json.Unmarshal(body, &fields) == nil {
		if s, ok := fields.Message.(string); ok && s != "" {
			return s
		}
		if s, ok := fields.Error.(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}
