package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	biddomain "github.com/rushr-app/rushr/internal/bid/domain"
	connectdomain "github.com/rushr-app/rushr/internal/connect/domain"
	customerdomain "github.com/rushr-app/rushr/internal/customer/domain"
	escrowdomain "github.com/rushr-app/rushr/internal/escrow/domain"
	jobdomain "github.com/rushr-app/rushr/internal/job/domain"
	"github.com/rushr-app/rushr/internal/stripe"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Status  string            `json:"status,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// State conflicts surface the hold's current status so clients can
	// refresh instead of guessing.
	var statusErr *escrowdomain.StatusError
	if errors.As(err, &statusErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_status",
			Message: statusErr.Error(),
			Status:  statusErr.Current,
		}
	}

	switch {
	case isBadRequestError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isStateConflictError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_status",
			Message: err.Error(),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, stripe.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case isProcessorError(err):
		return http.StatusInternalServerError, errorPayload{
			Type:    "processor_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isBadRequestError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, escrowdomain.ErrInvalidID),
		errors.Is(err, escrowdomain.ErrInvalidUserType),
		errors.Is(err, escrowdomain.ErrInvalidAmount),
		errors.Is(err, escrowdomain.ErrBidNotFundable),
		errors.Is(err, escrowdomain.ErrHoldExists),
		errors.Is(err, escrowdomain.ErrNotConfirmed),
		errors.Is(err, escrowdomain.ErrNoPayoutAccount),
		errors.Is(err, escrowdomain.ErrPayoutsDisabled),
		errors.Is(err, biddomain.ErrInvalidID),
		errors.Is(err, jobdomain.ErrInvalidID),
		errors.Is(err, connectdomain.ErrInvalidContractor),
		errors.Is(err, customerdomain.ErrInvalidHomeowner):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, escrowdomain.ErrNotOwner),
		errors.Is(err, escrowdomain.ErrNotParticipant),
		errors.Is(err, biddomain.ErrNotOwner),
		errors.Is(err, jobdomain.ErrNotOwner):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, escrowdomain.ErrNotFound),
		errors.Is(err, biddomain.ErrNotFound),
		errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, connectdomain.ErrNoAccount),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// State-conflict errors are client errors: the entity is not in the
// status the transition requires, and the caller should refresh.
func isStateConflictError(err error) bool {
	switch {
	case errors.Is(err, escrowdomain.ErrAlreadyConfirmed),
		errors.Is(err, escrowdomain.ErrAlreadyReleased),
		errors.Is(err, biddomain.ErrAlreadyRejected),
		errors.Is(err, biddomain.ErrNotPending),
		errors.Is(err, jobdomain.ErrAlreadyArrived),
		errors.Is(err, jobdomain.ErrNotConfirmed):
		return true
	default:
		return false
	}
}

func isProcessorError(err error) bool {
	var apiErr *stripe.APIError
	return errors.As(err, &apiErr)
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}
