package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidReference  = errors.New("invalid_payment_reference")
	ErrReferenceMismatch = errors.New("reference_not_bound_to_order")
	ErrAmountMismatch    = errors.New("amount_mismatch")
	ErrOrderNotPending   = errors.New("order_not_pending")
)

type ConfirmRequest struct {
	OrderID   snowflake.ID `json:"order_id"`
	Reference string       `json:"reference"`
}

type ConfirmResponse struct {
	Verified      bool         `json:"verified"`
	OrderID       snowflake.ID `json:"order_id"`
	PaymentStatus string       `json:"payment_status"`
}

// Service reconciles gateway transactions onto orders. Confirm is safe to
// retry; every downstream effect is anchored to winning the pending→paid
// status flip.
type Service interface {
	Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error)
}
