package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ticketdomain "github.com/campustix/campustix/internal/ticket/domain"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// MaxQuantityPerType caps one order line.
const MaxQuantityPerType = 10

var (
	ErrNotFound           = errors.New("order_not_found")
	ErrInvalidBuyer       = errors.New("invalid_buyer")
	ErrEmptyOrder         = errors.New("empty_order")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrEventNotActive     = errors.New("event_not_active")
	ErrTypeNotInEvent     = errors.New("ticket_type_not_in_event")
	ErrDuplicateReference = errors.New("duplicate_payment_reference")
)

type Order struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	EventID          snowflake.ID  `json:"event_id" gorm:"not null;index"`
	BuyerEmail       string        `json:"buyer_email" gorm:"type:text;not null"`
	BuyerName        string        `json:"buyer_name" gorm:"type:text;not null"`
	BuyerAccountID   *snowflake.ID `json:"buyer_account_id"`
	PaymentReference string        `json:"payment_reference" gorm:"type:text;not null;uniqueIndex"`
	GatewayReference *string       `json:"gateway_reference"`
	TotalAmount      int64         `json:"total_amount" gorm:"not null"`
	PaymentStatus    string        `json:"payment_status" gorm:"type:text;not null"`
	PaidAt           *time.Time    `json:"paid_at"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

type Line struct {
	TicketTypeID snowflake.ID `json:"ticket_type_id"`
	Quantity     int64        `json:"quantity"`
}

type PlaceOrderRequest struct {
	EventID          snowflake.ID  `json:"event_id"`
	BuyerEmail       string        `json:"buyer_email"`
	BuyerName        string        `json:"buyer_name"`
	BuyerAccountID   *snowflake.ID `json:"buyer_account_id"`
	PaymentReference string        `json:"payment_reference"`
	Lines            []Line        `json:"lines"`
}

type PlaceOrderResponse struct {
	Order   Order                 `json:"order"`
	Tickets []ticketdomain.Ticket `json:"tickets"`
}

type Service interface {
	Place(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResponse, error)
	Get(ctx context.Context, orderID snowflake.ID) (*Order, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayRef string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayRef string, at time.Time) (bool, error)
}
