package hcloud

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout is returned when an action does not complete in time.
var ErrTimeout = errors.New("timed out")

// APIError is a non-2xx response of the API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed: %s (%d), %s", e.Method, e.URL, http.StatusText(e.StatusCode), e.StatusCode, e.Message)
}

// Recoverable reports whether retrying the request may succeed. The API
// answers 423 while a conflicting action on the same resource is running.
func (e *APIError) Recoverable() bool {
	return e.StatusCode == http.StatusLocked
}

// ActionError is an action that finished with status error.
type ActionError struct {
	Command string
	Code    string
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %s (%s)", e.Command, e.Message, e.Code)
}

func isRecoverable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Recoverable()
}
