package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crownlab/crownlab/internal/authorization"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	invoicedomain "github.com/crownlab/crownlab/internal/invoice/domain"
	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"not found", dentistdomain.ErrNotFound, http.StatusNotFound},
		{"conflict", invoicedomain.ErrWorksheetAlreadyInvoiced, http.StatusConflict},
		{"invalid transition", worksheetdomain.ErrInvalidTransition, http.StatusBadRequest},
		{"wrapped tooth ref", fmt.Errorf("%w: 99", worksheetdomain.ErrInvalidToothRef), http.StatusBadRequest},
		{"dispatch failure", fmt.Errorf("%w: smtp down", invoicedomain.ErrDispatchFailure), http.StatusInternalServerError},
		{"validation", newValidationError("name", "required"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, payload.Type)
			assert.NotEmpty(t, payload.Message)
		})
	}
}

func TestMapErrorHidesInternalDetail(t *testing.T) {
	status, payload := mapError(errors.New("pq: connection reset"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, payload.Message, "pq:")
}

func TestValidationErrorsPayload(t *testing.T) {
	err := newValidationError("iban", "required")
	status, payload := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	assert.Len(t, payload.Errors, 1)
	assert.Equal(t, "iban", payload.Errors[0].Field)
}
