package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"legalflow/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &services.ValidationError{Field: "name", Message: "is required"}, http.StatusBadRequest},
		{"denied", &services.AccessDeniedError{Reason: "no office"}, http.StatusForbidden},
		{"not found", &services.NotFoundError{Resource: "Case", ID: "x"}, http.StatusNotFound},
		{"conflict", &services.ConflictError{Resource: "Case", Message: "duplicate"}, http.StatusConflict},
		{"external", &services.ExternalServiceError{Service: "whatsapp", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"wrapped not found", fmt.Errorf("loading: %w", &services.NotFoundError{Resource: "Client", ID: "y"}), http.StatusNotFound},
		{"echo error kept", echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var he *echo.HTTPError
			require.True(t, errors.As(HTTPError(tt.err), &he))
			assert.Equal(t, tt.code, he.Code)
		})
	}

	assert.NoError(t, HTTPError(nil))
}

func TestHTTPErrorHidesInternalDetails(t *testing.T) {
	he := HTTPError(errors.New("pq: password authentication failed")).(*echo.HTTPError)
	assert.Equal(t, "internal server error", he.Message)
}

func TestErrorHandlerRendersJSON(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ErrorHandler(&services.NotFoundError{Resource: "Case", ID: "42"}, c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Case not found: 42", errorMessage(t, rec))
}

func TestErrorHandlerHead(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/", nil), rec)

	ErrorHandler(echo.ErrForbidden, c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestValidatorUsesJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&services.ClientInput{Email: "not-an-email"})
	var valErr *services.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "name", valErr.Field)
	assert.Equal(t, "is required", valErr.Message)

	err = v.Validate(&services.ClientInput{Name: "Maria", Email: "not-an-email"})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "email", valErr.Field)
	assert.Equal(t, "must be a valid email", valErr.Message)

	assert.NoError(t, v.Validate(&services.ClientInput{Name: "Maria", Email: "maria@example.com"}))
}
