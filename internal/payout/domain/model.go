package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	ErrNotCreator          = errors.New("not_a_creator")
	ErrNotAdmin            = errors.New("not_an_admin")
	ErrWithdrawalNotFound  = errors.New("withdrawal_not_found")
	ErrProfileNotFound     = errors.New("creator_profile_not_found")
	ErrNotPending          = errors.New("withdrawal_not_pending")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrBelowMinimum        = errors.New("amount_below_minimum")
	ErrBankNotVerified     = errors.New("bank_not_verified")
	ErrReasonRequired      = errors.New("reject_reason_required")
	ErrInvalidBankDetails  = errors.New("invalid_bank_details")
	ErrInsufficientBalance = errors.New("insufficient_balance")
)

// InsufficientBalanceError reports the shortfall alongside the sentinel.
type InsufficientBalanceError struct {
	Requested int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient_balance: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

type CreatorProfile struct {
	CreatorID         snowflake.ID `json:"creator_id" gorm:"primaryKey"`
	Email             string       `json:"email" gorm:"type:text"`
	BankName          string       `json:"bank_name" gorm:"type:text"`
	BankAccountNumber string       `json:"bank_account_number" gorm:"type:text"`
	BankAccountName   string       `json:"bank_account_name" gorm:"type:text"`
	IsBankVerified    bool         `json:"is_bank_verified" gorm:"not null"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null"`
}

func (CreatorProfile) TableName() string { return "creator_profiles" }

type WithdrawalRequest struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	CreatorID         snowflake.ID  `json:"creator_id" gorm:"not null;index"`
	Amount            int64         `json:"amount" gorm:"not null"`
	Status            string        `json:"status" gorm:"type:text;not null"`
	BankName          string        `json:"bank_name" gorm:"type:text"`
	BankAccountNumber string        `json:"bank_account_number" gorm:"type:text"`
	BankAccountName   string        `json:"bank_account_name" gorm:"type:text"`
	AdminID           *snowflake.ID `json:"admin_id"`
	AdminNote         *string       `json:"admin_note"`
	RejectReason      *string       `json:"reject_reason"`
	DecidedAt         *time.Time    `json:"decided_at"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"not null"`
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }

// Balance is always derived from paid orders and approved withdrawals;
// there is no stored running total to drift.
type Balance struct {
	CreatorID  snowflake.ID `json:"creator_id"`
	NetRevenue int64        `json:"net_revenue"`
	Withdrawn  int64        `json:"withdrawn"`
	Available  int64        `json:"available"`
}

type BankDetailsRequest struct {
	BankName          string `json:"bank_name"`
	BankAccountNumber string `json:"bank_account_number"`
	BankAccountName   string `json:"bank_account_name"`
}

type Service interface {
	Balance(ctx context.Context, actor actorcontext.Actor) (*Balance, error)
	Submit(ctx context.Context, actor actorcontext.Actor, amount int64) (*WithdrawalRequest, error)
	Approve(ctx context.Context, actor actorcontext.Actor, id snowflake.ID, note string) (*WithdrawalRequest, error)
	Reject(ctx context.Context, actor actorcontext.Actor, id snowflake.ID, reason string) (*WithdrawalRequest, error)
	UpsertBankDetails(ctx context.Context, actor actorcontext.Actor, req BankDetailsRequest) (*CreatorProfile, error)
	VerifyBank(ctx context.Context, actor actorcontext.Actor, creatorID snowflake.ID) (*CreatorProfile, error)
}

type Repository interface {
	FindProfile(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) (*CreatorProfile, error)
	FindProfileLocked(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) (*CreatorProfile, error)
	UpsertProfile(ctx context.Context, db *gorm.DB, profile *CreatorProfile) error
	SetBankVerified(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, at time.Time) (bool, error)
	BalanceComponents(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, serviceCharge int64) (netRevenue, withdrawn int64, err error)
	InsertWithdrawal(ctx context.Context, db *gorm.DB, wr *WithdrawalRequest) error
	FindWithdrawal(ctx context.Context, db *gorm.DB, id snowflake.ID) (*WithdrawalRequest, error)
	ApproveWithdrawal(ctx context.Context, db *gorm.DB, id snowflake.ID, adminID snowflake.ID, note string, at time.Time) (bool, error)
	RejectWithdrawal(ctx context.Context, db *gorm.DB, id snowflake.ID, adminID snowflake.ID, reason string, at time.Time) (bool, error)
}
