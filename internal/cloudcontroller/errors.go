package cloudcontroller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying later: network errors and
	// 5xx responses.
	ErrTransient = errors.New("transient controller error")
	// ErrNotFound marks 404 responses and empty lookups.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx controller response.
type APIError struct {
	StatusCode  int
	Code        int    `json:"code"`
	ErrorCode   string `json:"error_code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = http.StatusText(e.StatusCode)
	}
	if e.ErrorCode != "" {
		return fmt.Sprintf("controller returned %d %s: %s", e.StatusCode, e.ErrorCode, desc)
	}
	return fmt.Sprintf("controller returned %d: %s", e.StatusCode, desc)
}

// Is reports 5xx responses as ErrTransient and 404 as ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.StatusCode >= 500
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	if json.Unmarshal(body, apiErr) != nil || apiErr.Description == "" {
		apiErr.Description = strings.TrimSpace(string(body))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

// IsTransient reports whether err is worth retrying on a later poll.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
