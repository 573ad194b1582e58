package sequin

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "configuration", err: &ConfigurationError{Reason: "x"}, want: http.StatusBadRequest},
		{name: "upstream", err: &UpstreamError{StatusCode: http.StatusConflict}, want: http.StatusConflict},
		{name: "upstream wrapped", err: fmt.Errorf("create: %w", &UpstreamError{StatusCode: 404}), want: http.StatusNotFound},
		{name: "upstream redirect", err: &UpstreamError{StatusCode: http.StatusFound}, want: http.StatusBadGateway},
		{name: "invalid response", err: fmt.Errorf("list: %w", ErrInvalidResponse), want: http.StatusBadGateway},
		{name: "transport", err: &TransportError{Operation: "x", Err: errors.New("refused")}, want: http.StatusInternalServerError},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	assert.Equal(t, "not found", (&UpstreamError{StatusCode: 404, Body: "not found\n"}).Error())
	assert.Equal(t, "Bad Gateway", (&UpstreamError{StatusCode: 502}).Error())
}
