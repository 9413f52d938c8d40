package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"gorm.io/gorm"
)

const (
	StatusValid     = "valid"
	StatusUsed      = "used"
	StatusCancelled = "cancelled"
)

const (
	ScanAccepted  = "accepted"
	ScanDuplicate = "duplicate"
	ScanRejected  = "rejected"
)

var (
	ErrNotFound         = errors.New("ticket_not_found")
	ErrNotOrganizer     = errors.New("not_event_organizer")
	ErrOrderNotPaid     = errors.New("order_not_paid")
	ErrTicketCancelled  = errors.New("ticket_cancelled")
	ErrAlreadyValidated = errors.New("ticket_already_validated")
)

type Ticket struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrderID      snowflake.ID  `json:"order_id" gorm:"not null;index"`
	TicketTypeID snowflake.ID  `json:"ticket_type_id" gorm:"not null"`
	EventID      snowflake.ID  `json:"event_id" gorm:"not null;index"`
	Status       string        `json:"status" gorm:"type:text;not null"`
	QRToken      string        `json:"qr_token" gorm:"column:qr_token;type:text;not null"`
	CheckedInAt  *time.Time    `json:"checked_in_at"`
	CheckedInBy  *snowflake.ID `json:"checked_in_by"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null"`
}

func (Ticket) TableName() string { return "tickets" }

type TicketScan struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	TicketID  snowflake.ID `json:"ticket_id" gorm:"not null;index"`
	EventID   snowflake.ID `json:"event_id" gorm:"not null"`
	ActorID   snowflake.ID `json:"actor_id" gorm:"not null"`
	Result    string       `json:"result" gorm:"type:text;not null"`
	ScannedAt time.Time    `json:"scanned_at" gorm:"not null"`
}

func (TicketScan) TableName() string { return "ticket_scans" }

// Detail is a ticket joined with the owning order's payment state and the
// event's organizer, enough to decide resolve and check-in in one read.
type Detail struct {
	Ticket
	PaymentStatus string       `json:"payment_status"`
	OrganizerID   snowflake.ID `json:"organizer_id"`
}

// TypeCount is the per-type ticket count of one order.
type TypeCount struct {
	TicketTypeID snowflake.ID `json:"ticket_type_id"`
	Count        int64        `json:"count"`
}

type CheckInResult struct {
	Ticket Ticket `json:"ticket"`
	Result string `json:"result"`
}

type Service interface {
	Resolve(ctx context.Context, ticketID snowflake.ID) (*Ticket, error)
	CheckIn(ctx context.Context, actor actorcontext.Actor, ticketID snowflake.ID) (*CheckInResult, error)
}

type Repository interface {
	InsertTickets(ctx context.Context, db *gorm.DB, tickets []Ticket) error
	FindDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Detail, error)
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, actorID snowflake.ID, at time.Time) (bool, error)
	InsertScan(ctx context.Context, db *gorm.DB, scan *TicketScan) error
	CountByTypeForOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]TypeCount, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Ticket, error)
}
