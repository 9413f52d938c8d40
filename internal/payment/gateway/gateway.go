package gateway

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusPending   = "pending"
)

var (
	ErrUnavailable         = errors.New("gateway_unavailable")
	ErrTransactionNotFound = errors.New("gateway_transaction_not_found")
)

// Transaction is the provider's view of one payment attempt.
type Transaction struct {
	Reference string
	OrderID   snowflake.ID
	Status    string
	Amount    int64
}

// Gateway verifies a payment reference against the provider's records.
type Gateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)
}
