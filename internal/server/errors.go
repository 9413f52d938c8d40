package server

import (
	"errors"
	"net/http"

	eventdomain "github.com/campustix/campustix/internal/event/domain"
	orderdomain "github.com/campustix/campustix/internal/order/domain"
	paymentdomain "github.com/campustix/campustix/internal/payment/domain"
	"github.com/campustix/campustix/internal/payment/gateway"
	payoutdomain "github.com/campustix/campustix/internal/payout/domain"
	ticketdomain "github.com/campustix/campustix/internal/ticket/domain"
	"github.com/campustix/campustix/internal/ticket/token"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

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

func mapError(err error) (int, errorPayload) {
	var balanceErr *payoutdomain.InsufficientBalanceError
	if errors.As(err, &balanceErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    "insufficient_balance",
			Message: balanceErr.Error(),
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "validation error",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Code:    "unauthorized",
			Message: "unauthorized",
		}
	case isAuthorizationError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Code:    err.Error(),
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    err.Error(),
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    err.Error(),
			Message: "conflict",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Code:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, gateway.ErrUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_unavailable",
			Code:    "gateway_unavailable",
			Message: "payment gateway unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Code:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, eventdomain.ErrInvalidTitle),
		errors.Is(err, eventdomain.ErrInvalidVenue),
		errors.Is(err, eventdomain.ErrInvalidStatus),
		errors.Is(err, eventdomain.ErrInvalidPrice),
		errors.Is(err, eventdomain.ErrInvalidQuantity),
		errors.Is(err, orderdomain.ErrInvalidBuyer),
		errors.Is(err, orderdomain.ErrEmptyOrder),
		errors.Is(err, orderdomain.ErrInvalidQuantity),
		errors.Is(err, orderdomain.ErrEventNotActive),
		errors.Is(err, orderdomain.ErrTypeNotInEvent),
		errors.Is(err, paymentdomain.ErrInvalidReference),
		errors.Is(err, paymentdomain.ErrReferenceMismatch),
		errors.Is(err, paymentdomain.ErrAmountMismatch),
		errors.Is(err, payoutdomain.ErrInvalidAmount),
		errors.Is(err, payoutdomain.ErrBelowMinimum),
		errors.Is(err, payoutdomain.ErrBankNotVerified),
		errors.Is(err, payoutdomain.ErrReasonRequired),
		errors.Is(err, payoutdomain.ErrInvalidBankDetails),
		errors.Is(err, payoutdomain.ErrInsufficientBalance),
		errors.Is(err, token.ErrInvalidToken):
		return true
	default:
		return false
	}
}

func isAuthorizationError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, eventdomain.ErrNotOrganizer),
		errors.Is(err, ticketdomain.ErrNotOrganizer),
		errors.Is(err, payoutdomain.ErrNotCreator),
		errors.Is(err, payoutdomain.ErrNotAdmin):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, eventdomain.ErrNotFound),
		errors.Is(err, eventdomain.ErrTicketTypeNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, ticketdomain.ErrNotFound),
		errors.Is(err, payoutdomain.ErrWithdrawalNotFound),
		errors.Is(err, payoutdomain.ErrProfileNotFound),
		errors.Is(err, gateway.ErrTransactionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, eventdomain.ErrStatusTransition),
		errors.Is(err, eventdomain.ErrSoldOut),
		errors.Is(err, orderdomain.ErrDuplicateReference),
		errors.Is(err, paymentdomain.ErrOrderNotPending),
		errors.Is(err, ticketdomain.ErrOrderNotPaid),
		errors.Is(err, ticketdomain.ErrTicketCancelled),
		errors.Is(err, ticketdomain.ErrAlreadyValidated),
		errors.Is(err, payoutdomain.ErrNotPending):
		return true
	default:
		return false
	}
}
