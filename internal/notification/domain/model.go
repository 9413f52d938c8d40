package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

const (
	TypePaymentReceipt     = "payment_receipt"
	TypeWithdrawalApproved = "withdrawal_approved"
	TypeWithdrawalRejected = "withdrawal_rejected"
)

type Notification struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	Type          string         `json:"type" gorm:"type:text;not null"`
	Recipient     string         `json:"recipient" gorm:"type:text;not null"`
	TemplateData  datatypes.JSON `json:"template_data" gorm:"type:jsonb;not null"`
	Status        string         `json:"status" gorm:"type:text;not null"`
	Attempts      int            `json:"attempts" gorm:"not null"`
	NextAttemptAt time.Time      `json:"next_attempt_at" gorm:"not null"`
	LastError     *string        `json:"last_error"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"not null"`
}

func (Notification) TableName() string { return "notifications" }

// Service enqueues notifications inside the caller's transaction so the
// outbox row commits or rolls back with the business write.
type Service interface {
	Enqueue(ctx context.Context, tx *gorm.DB, typ, recipient string, data map[string]interface{}) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Notification, error)
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkRetry(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, nextAttemptAt time.Time, lastError string, at time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, at time.Time) error
}
