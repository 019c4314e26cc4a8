package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	authdomain "github.com/crownlab/crownlab/internal/auth/domain"
	"github.com/crownlab/crownlab/internal/authorization"
	bankdomain "github.com/crownlab/crownlab/internal/bankaccount/domain"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	invoicedomain "github.com/crownlab/crownlab/internal/invoice/domain"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
	productdomain "github.com/crownlab/crownlab/internal/product/domain"
	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return v[0].Field + ": " + v[0].Message
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors pushed onto the gin context
// into a uniform JSON error body. Handlers report failures through
// AbortWithError and never write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, payload := mapError(err)
		c.JSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError(message string) error {
	return ValidationErrors{{Field: "request", Message: message}}
}

func newValidationError(field, message string) error {
	return ValidationErrors{{Field: field, Message: message}}
}

func mapError(err error) (int, errorPayload) {
	var validationErrs ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "request validation failed",
			Errors:  validationErrs,
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "authentication required",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "insufficient permissions",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, invoicedomain.ErrDispatchFailure):
		return http.StatusInternalServerError, errorPayload{
			Type:    "dispatch_failure",
			Message: err.Error(),
		}
	case isDomainValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func isUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, authdomain.ErrInvalidCredentials) ||
		errors.Is(err, authdomain.ErrInvalidSession) ||
		errors.Is(err, authdomain.ErrSessionNotFound) ||
		errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrSessionRevoked)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, labdomain.ErrNotFound) ||
		errors.Is(err, labdomain.ErrMemberNotFound) ||
		errors.Is(err, authdomain.ErrUserNotFound) ||
		errors.Is(err, dentistdomain.ErrNotFound) ||
		errors.Is(err, worksheetdomain.ErrNotFound) ||
		errors.Is(err, worksheetdomain.ErrDentistNotFound) ||
		errors.Is(err, invoicedomain.ErrNotFound) ||
		errors.Is(err, invoicedomain.ErrDentistNotFound) ||
		errors.Is(err, invoicedomain.ErrWorksheetNotFound) ||
		errors.Is(err, productdomain.ErrNotFound) ||
		errors.Is(err, bankdomain.ErrNotFound)
}

func isConflictError(err error) bool {
	return errors.Is(err, invoicedomain.ErrWorksheetAlreadyInvoiced) ||
		errors.Is(err, invoicedomain.ErrNumberTaken) ||
		errors.Is(err, worksheetdomain.ErrNumberTaken) ||
		errors.Is(err, productdomain.ErrCodeTaken) ||
		errors.Is(err, labdomain.ErrSlugTaken) ||
		errors.Is(err, authdomain.ErrUserExists)
}

func isDomainValidationError(err error) bool {
	return errors.Is(err, worksheetdomain.ErrInvalidTransition) ||
		errors.Is(err, worksheetdomain.ErrReasonRequired) ||
		errors.Is(err, worksheetdomain.ErrInvalidToothRef) ||
		errors.Is(err, worksheetdomain.ErrInvalidPrice) ||
		errors.Is(err, worksheetdomain.ErrInvalidPageToken) ||
		errors.Is(err, invoicedomain.ErrInvalidTransition) ||
		errors.Is(err, invoicedomain.ErrDentistMismatch) ||
		errors.Is(err, invoicedomain.ErrNoWorksheets) ||
		errors.Is(err, invoicedomain.ErrInvalidKind) ||
		errors.Is(err, invoicedomain.ErrNegativeAmount) ||
		errors.Is(err, invoicedomain.ErrInvalidQuantity) ||
		errors.Is(err, invoicedomain.ErrNoRecipient) ||
		errors.Is(err, invoicedomain.ErrInvalidPageToken) ||
		errors.Is(err, productdomain.ErrCodeRequired) ||
		errors.Is(err, productdomain.ErrNameRequired) ||
		errors.Is(err, productdomain.ErrInvalidCategory) ||
		errors.Is(err, productdomain.ErrEmptyIDSet) ||
		errors.Is(err, productdomain.ErrEmptyPatch) ||
		errors.Is(err, productdomain.ErrInvalidPrice) ||
		errors.Is(err, productdomain.ErrInvalidPageToken) ||
		errors.Is(err, bankdomain.ErrBankNameRequired) ||
		errors.Is(err, bankdomain.ErrIBANRequired) ||
		errors.Is(err, dentistdomain.ErrInvalidName) ||
		errors.Is(err, dentistdomain.ErrInvalidPageToken) ||
		errors.Is(err, labdomain.ErrInvalidName) ||
		errors.Is(err, labdomain.ErrInvalidRole) ||
		errors.Is(err, auditdomain.ErrInvalidPageToken) ||
		errors.Is(err, auditdomain.ErrInvalidTimeRange) ||
		errors.Is(err, auditdomain.ErrInvalidAction)
}
