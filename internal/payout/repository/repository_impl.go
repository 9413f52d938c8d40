package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/campustix/campustix/internal/order/domain"
	"github.com/campustix/campustix/internal/payout/domain"
	pkgdb "github.com/campustix/campustix/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindProfile(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) (*domain.CreatorProfile, error) {
	return r.findProfile(ctx, db, creatorID)
}

// FindProfileLocked serializes withdrawal submission and approval per
// creator by holding the profile row until the transaction ends.
func (r *repo) FindProfileLocked(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) (*domain.CreatorProfile, error) {
	return r.findProfile(ctx, pkgdb.LockForUpdate(db), creatorID)
}

func (r *repo) findProfile(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) (*domain.CreatorProfile, error) {
	var item domain.CreatorProfile
	err := db.WithContext(ctx).
		Table("creator_profiles").
		Where("creator_id = ?", creatorID).
		Limit(1).
		Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.CreatorID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpsertProfile(ctx context.Context, db *gorm.DB, profile *domain.CreatorProfile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO creator_profiles (
			creator_id, email, bank_name, bank_account_number, bank_account_name,
			is_bank_verified, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (creator_id) DO UPDATE SET
			email = EXCLUDED.email,
			bank_name = EXCLUDED.bank_name,
			bank_account_number = EXCLUDED.bank_account_number,
			bank_account_name = EXCLUDED.bank_account_name,
			is_bank_verified = EXCLUDED.is_bank_verified,
			updated_at = EXCLUDED.updated_at`,
		profile.CreatorID,
		profile.Email,
		profile.BankName,
		profile.BankAccountNumber,
		profile.BankAccountName,
		profile.IsBankVerified,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Error
}

func (r *repo) SetBankVerified(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE creator_profiles
		 SET is_bank_verified = ?, updated_at = ?
		 WHERE creator_id = ?`,
		true,
		at,
		creatorID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// BalanceComponents derives the creator ledger from paid orders and approved
// withdrawals. Per-order fee deduction goes through domain.NetRevenue so the
// charge policy lives in exactly one place.
func (r *repo) BalanceComponents(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, serviceCharge int64) (int64, int64, error) {
	var totals []int64
	err := db.WithContext(ctx).Raw(
		`SELECT o.total_amount
		 FROM orders o
		 JOIN events e ON e.id = o.event_id
		 WHERE e.organizer_id = ? AND o.payment_status = ?`,
		creatorID,
		orderdomain.PaymentStatusPaid,
	).Scan(&totals).Error
	if err != nil {
		return 0, 0, err
	}
	var net int64
	for _, total := range totals {
		net += domain.NetRevenue(total, serviceCharge)
	}

	var withdrawn int64
	err = db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(w.amount), 0)
		 FROM withdrawal_requests w
		 WHERE w.creator_id = ? AND w.status = ?`,
		creatorID,
		domain.StatusApproved,
	).Scan(&withdrawn).Error
	if err != nil {
		return 0, 0, err
	}
	return net, withdrawn, nil
}

func (r *repo) InsertWithdrawal(ctx context.Context, db *gorm.DB, wr *domain.WithdrawalRequest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO withdrawal_requests (
			id, creator_id, amount, status, bank_name, bank_account_number,
			bank_account_name, admin_id, admin_note, reject_reason, decided_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wr.ID,
		wr.CreatorID,
		wr.Amount,
		wr.Status,
		wr.BankName,
		wr.BankAccountNumber,
		wr.BankAccountName,
		wr.AdminID,
		wr.AdminNote,
		wr.RejectReason,
		wr.DecidedAt,
		wr.CreatedAt,
		wr.UpdatedAt,
	).Error
}

func (r *repo) FindWithdrawal(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.WithdrawalRequest, error) {
	var item domain.WithdrawalRequest
	err := db.WithContext(ctx).Raw(
		`SELECT id, creator_id, amount, status, bank_name, bank_account_number,
			bank_account_name, admin_id, admin_note, reject_reason, decided_at,
			created_at, updated_at
		 FROM withdrawal_requests
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ApproveWithdrawal(ctx context.Context, db *gorm.DB, id snowflake.ID, adminID snowflake.ID, note string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE withdrawal_requests
		 SET status = ?, admin_id = ?, admin_note = ?, decided_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusApproved,
		adminID,
		note,
		at,
		at,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) RejectWithdrawal(ctx context.Context, db *gorm.DB, id snowflake.ID, adminID snowflake.ID, reason string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE withdrawal_requests
		 SET status = ?, admin_id = ?, reject_reason = ?, decided_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusRejected,
		adminID,
		reason,
		at,
		at,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
