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
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	ErrNotFound           = errors.New("event_not_found")
	ErrTicketTypeNotFound = errors.New("ticket_type_not_found")
	ErrInvalidTitle       = errors.New("invalid_title")
	ErrInvalidVenue       = errors.New("invalid_venue")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrNotOrganizer       = errors.New("not_event_organizer")
	ErrStatusTransition   = errors.New("illegal_status_transition")
	ErrSoldOut            = errors.New("sold_out")
)

type Event struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrganizerID snowflake.ID `json:"organizer_id" gorm:"not null;index"`
	Title       string       `json:"title" gorm:"type:text;not null"`
	Venue       string       `json:"venue" gorm:"type:text"`
	Status      string       `json:"status" gorm:"type:text;not null"`
	StartsAt    *time.Time   `json:"starts_at"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (Event) TableName() string { return "events" }

type TicketType struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	EventID   snowflake.ID `json:"event_id" gorm:"not null;index"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Price     int64        `json:"price" gorm:"not null"`
	Quantity  int64        `json:"quantity" gorm:"not null"`
	SoldCount int64        `json:"sold_count" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (TicketType) TableName() string { return "ticket_types" }

func (t TicketType) Available() int64 { return t.Quantity - t.SoldCount }

type CreateEventRequest struct {
	Title    string     `json:"title"`
	Venue    string     `json:"venue"`
	StartsAt *time.Time `json:"starts_at"`
}

type AddTicketTypeRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type EventWithTypes struct {
	Event       Event        `json:"event"`
	TicketTypes []TicketType `json:"ticket_types"`
}

type Service interface {
	Create(ctx context.Context, actor actorcontext.Actor, req CreateEventRequest) (*Event, error)
	UpdateStatus(ctx context.Context, actor actorcontext.Actor, eventID snowflake.ID, status string) (*Event, error)
	AddTicketType(ctx context.Context, actor actorcontext.Actor, eventID snowflake.ID, req AddTicketTypeRequest) (*TicketType, error)
	GetWithTypes(ctx context.Context, eventID snowflake.ID) (*EventWithTypes, error)
	ReserveCheck(ctx context.Context, typeID snowflake.ID, qty int64) error
}

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *Event) error
	FindEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
	UpdateEventStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to string, at time.Time) (bool, error)
	InsertTicketType(ctx context.Context, db *gorm.DB, tt *TicketType) error
	FindTicketType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TicketType, error)
	ListTicketTypes(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]TicketType, error)
	CommitSold(ctx context.Context, db *gorm.DB, typeID snowflake.ID, qty int64, at time.Time) (bool, error)
}
