package sequin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidResponse is returned when a 2xx upstream response is not JSON.
var ErrInvalidResponse = errors.New("invalid upstream response")

// ConfigurationError means the settings needed to reach upstream are missing.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// UpstreamError carries a non-2xx upstream response.
type UpstreamError struct {
	Operation  string
	Body       string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return body
}

// TransportError means the request could not be sent or the response could not be read.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode maps an error returned by this package to the HTTP status reported to callers.
func StatusCode(err error) int {
	var cfgErr *ConfigurationError
	var upErr *UpstreamError
	var tErr *TransportError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &upErr):
		if upErr.StatusCode < 400 || upErr.StatusCode > 599 {
			return http.StatusBadGateway
		}
		return upErr.StatusCode
	case errors.Is(err, ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.As(err, &tErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
