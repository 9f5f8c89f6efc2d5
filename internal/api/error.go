package api

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is returned for any response outside the 2xx range.
type APIError struct {
	Message string
	Status  int
	URL     string
	// Details is the parsed response body: a decoded JSON value, a string,
	// or nil when the body was empty or unparseable.
	Details any
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAPIError reports whether err wraps an *APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func newAPIError(status int, url string, details any) *APIError {
	msg := fmt.Sprintf("Request failed (%d)", status)
	switch d := details.(type) {
	case map[string]any:
		if m, ok := d["message"].(string); ok {
			msg = m
		}
	case string:
		if strings.TrimSpace(d) != "" {
			msg = d
		}
	}
	return &APIError{Message: msg, Status: status, URL: url, Details: details}
}

// Message renders err the way the UI shows it.
func Message(err error) string {
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "Something went wrong"
}
