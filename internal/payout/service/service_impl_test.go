package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"github.com/campustix/campustix/internal/clock"
	"github.com/campustix/campustix/internal/config"
	notificationrepo "github.com/campustix/campustix/internal/notification/repository"
	notificationservice "github.com/campustix/campustix/internal/notification/service"
	payoutdomain "github.com/campustix/campustix/internal/payout/domain"
	payoutrepo "github.com/campustix/campustix/internal/payout/repository"
	payoutservice "github.com/campustix/campustix/internal/payout/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testServiceCharge = 1000
	testMinWithdrawal = 5000
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE events (
			id BIGINT PRIMARY KEY,
			organizer_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			venue TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			starts_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			event_id BIGINT NOT NULL,
			buyer_email TEXT NOT NULL,
			buyer_name TEXT NOT NULL,
			buyer_account_id BIGINT,
			payment_reference TEXT NOT NULL,
			gateway_reference TEXT,
			total_amount BIGINT NOT NULL,
			payment_status TEXT NOT NULL DEFAULT 'pending',
			paid_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE creator_profiles (
			creator_id BIGINT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			bank_name TEXT NOT NULL DEFAULT '',
			bank_account_number TEXT NOT NULL DEFAULT '',
			bank_account_name TEXT NOT NULL DEFAULT '',
			is_bank_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE withdrawal_requests (
			id BIGINT PRIMARY KEY,
			creator_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			bank_name TEXT NOT NULL DEFAULT '',
			bank_account_number TEXT NOT NULL DEFAULT '',
			bank_account_name TEXT NOT NULL DEFAULT '',
			admin_id BIGINT,
			admin_note TEXT,
			reject_reason TEXT,
			decided_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE notifications (
			id BIGINT PRIMARY KEY,
			type TEXT NOT NULL,
			recipient TEXT NOT NULL,
			template_data TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at DATETIME NOT NULL,
			last_error TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	svc     payoutdomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	creator actorcontext.Actor
	admin   actorcontext.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(24)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	notifier := notificationservice.NewService(notificationservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  notificationrepo.Provide(),
	})
	svc := payoutservice.NewService(payoutservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Config: config.Config{
			ServiceCharge: testServiceCharge,
			MinWithdrawal: testMinWithdrawal,
		},
		Repo:     payoutrepo.Provide(),
		Notifier: notifier,
	})

	return &fixture{
		svc:  svc,
		db:   db,
		node: node,
		creator: actorcontext.Actor{
			ID:    node.Generate(),
			Role:  actorcontext.RoleOrganizer,
			Email: "creator@campus.edu",
		},
		admin: actorcontext.Actor{ID: node.Generate(), Role: actorcontext.RoleAdmin},
	}
}

// seedPaidOrder creates an event owned by the creator and one order against it.
func (f *fixture) seedPaidOrder(t *testing.T, total int64, status string) {
	t.Helper()

	now := time.Now().UTC()
	eventID := f.node.Generate()
	if err := f.db.Exec(
		`INSERT INTO events (id, organizer_id, title, status, created_at, updated_at) VALUES (?, ?, ?, 'active', ?, ?)`,
		eventID, f.creator.ID, "Show", now, now,
	).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	if err := f.db.Exec(
		`INSERT INTO orders (id, event_id, buyer_email, buyer_name, payment_reference, total_amount, payment_status, created_at, updated_at)
		 VALUES (?, ?, 'buyer@campus.edu', 'Buyer', ?, ?, ?, ?, ?)`,
		f.node.Generate(), eventID, f.node.Generate().String(), total, status, now, now,
	).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func (f *fixture) verifiedBank(t *testing.T) {
	t.Helper()

	_, err := f.svc.UpsertBankDetails(context.Background(), f.creator, payoutdomain.BankDetailsRequest{
		BankName:          "First Bank",
		BankAccountNumber: "0123456789",
		BankAccountName:   "Campus Creator",
	})
	if err != nil {
		t.Fatalf("upsert bank details: %v", err)
	}
	if _, err := f.svc.VerifyBank(context.Background(), f.admin, f.creator.ID); err != nil {
		t.Fatalf("verify bank: %v", err)
	}
}

func notificationCount(t *testing.T, db *gorm.DB, typ string) int64 {
	t.Helper()
	var n int64
	if err := db.Raw("SELECT COUNT(1) FROM notifications WHERE type = ?", typ).Scan(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}

func TestBalanceDerivesFromPaidOrders(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	f.seedPaidOrder(t, 10000, "paid")
	f.seedPaidOrder(t, 10000, "paid")
	f.seedPaidOrder(t, 8000, "pending")
	// Orders at or below the service charge net nothing.
	f.seedPaidOrder(t, 500, "paid")

	balance, err := f.svc.Balance(ctx, f.creator)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	wantNet := int64(2 * (10000 - testServiceCharge))
	if balance.NetRevenue != wantNet {
		t.Fatalf("net revenue: got %d want %d", balance.NetRevenue, wantNet)
	}
	if balance.Withdrawn != 0 {
		t.Fatalf("nothing withdrawn yet, got %d", balance.Withdrawn)
	}
	if balance.Available != wantNet {
		t.Fatalf("available: got %d want %d", balance.Available, wantNet)
	}
}

func TestBalanceRequiresCreator(t *testing.T) {
	f := setup(t)
	attendee := actorcontext.Actor{ID: f.node.Generate(), Role: actorcontext.RoleAttendee}
	if _, err := f.svc.Balance(context.Background(), attendee); !errors.Is(err, payoutdomain.ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
}

func TestSubmitValidations(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPaidOrder(t, 10000, "paid")

	if _, err := f.svc.Submit(ctx, f.creator, 0); !errors.Is(err, payoutdomain.ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.creator, testMinWithdrawal-1); !errors.Is(err, payoutdomain.ErrBelowMinimum) {
		t.Fatalf("below minimum: got %v", err)
	}
	// No bank details on file yet.
	if _, err := f.svc.Submit(ctx, f.creator, testMinWithdrawal); !errors.Is(err, payoutdomain.ErrBankNotVerified) {
		t.Fatalf("missing profile: got %v", err)
	}

	f.verifiedBank(t)
	_, err := f.svc.Submit(ctx, f.creator, 9000+1)
	if !errors.Is(err, payoutdomain.ErrInsufficientBalance) {
		t.Fatalf("over available: got %v", err)
	}
	var insufficient *payoutdomain.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %T", err)
	}
	if insufficient.Available != 9000 || insufficient.Requested != 9001 {
		t.Fatalf("wrong shortfall report: %+v", insufficient)
	}
}

func TestSubmitRejectsUnverifiedBank(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPaidOrder(t, 10000, "paid")

	if _, err := f.svc.UpsertBankDetails(ctx, f.creator, payoutdomain.BankDetailsRequest{
		BankName:          "First Bank",
		BankAccountNumber: "0123456789",
		BankAccountName:   "Campus Creator",
	}); err != nil {
		t.Fatalf("upsert bank details: %v", err)
	}

	if _, err := f.svc.Submit(ctx, f.creator, testMinWithdrawal); !errors.Is(err, payoutdomain.ErrBankNotVerified) {
		t.Fatalf("expected ErrBankNotVerified, got %v", err)
	}
}

func TestApproveIsFinal(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPaidOrder(t, 10000, "paid")
	f.verifiedBank(t)

	wr, err := f.svc.Submit(ctx, f.creator, 6000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	approved, err := f.svc.Approve(ctx, f.admin, wr.ID, "looks good")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != payoutdomain.StatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.AdminID == nil || *approved.AdminID != f.admin.ID {
		t.Fatal("approval should record the deciding admin")
	}
	if n := notificationCount(t, f.db, "withdrawal_approved"); n != 1 {
		t.Fatalf("expected one approval notification, got %d", n)
	}

	// Decisions are terminal in both directions.
	if _, err := f.svc.Approve(ctx, f.admin, wr.ID, ""); !errors.Is(err, payoutdomain.ErrNotPending) {
		t.Fatalf("second approve: got %v", err)
	}
	if _, err := f.svc.Reject(ctx, f.admin, wr.ID, "changed my mind"); !errors.Is(err, payoutdomain.ErrNotPending) {
		t.Fatalf("reject after approve: got %v", err)
	}

	balance, err := f.svc.Balance(ctx, f.creator)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Withdrawn != 6000 || balance.Available != 3000 {
		t.Fatalf("approved amount should reduce available: %+v", balance)
	}
}

func TestRejectIsFinal(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPaidOrder(t, 10000, "paid")
	f.verifiedBank(t)

	wr, err := f.svc.Submit(ctx, f.creator, 6000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.Reject(ctx, f.admin, wr.ID, ""); !errors.Is(err, payoutdomain.ErrReasonRequired) {
		t.Fatalf("empty reason: got %v", err)
	}
	rejected, err := f.svc.Reject(ctx, f.admin, wr.ID, "bank mismatch")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != payoutdomain.StatusRejected || rejected.RejectReason == nil {
		t.Fatalf("expected rejected with reason, got %+v", rejected)
	}
	if n := notificationCount(t, f.db, "withdrawal_rejected"); n != 1 {
		t.Fatalf("expected one rejection notification, got %d", n)
	}

	if _, err := f.svc.Approve(ctx, f.admin, wr.ID, ""); !errors.Is(err, payoutdomain.ErrNotPending) {
		t.Fatalf("approve after reject: got %v", err)
	}

	// Rejected requests never count against the balance.
	balance, err := f.svc.Balance(ctx, f.creator)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Available != 9000 {
		t.Fatalf("rejected amount should stay available: %+v", balance)
	}
}

func TestApproveRechecksBalance(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPaidOrder(t, 10000, "paid")
	f.verifiedBank(t)

	wr, err := f.svc.Submit(ctx, f.creator, 9000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Revenue disappears between submission and the decision.
	if err := f.db.Exec("UPDATE orders SET payment_status = 'refunded'").Error; err != nil {
		t.Fatalf("refund orders: %v", err)
	}

	_, err = f.svc.Approve(ctx, f.admin, wr.ID, "")
	if !errors.Is(err, payoutdomain.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	var status string
	if err := f.db.Raw("SELECT status FROM withdrawal_requests WHERE id = ?", wr.ID).Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != payoutdomain.StatusPending {
		t.Fatalf("failed approval should leave request pending, got %s", status)
	}
}

func TestDecisionsRequireAdmin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPaidOrder(t, 10000, "paid")
	f.verifiedBank(t)

	wr, err := f.svc.Submit(ctx, f.creator, 6000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.Approve(ctx, f.creator, wr.ID, ""); !errors.Is(err, payoutdomain.ErrNotAdmin) {
		t.Fatalf("creator approve: got %v", err)
	}
	if _, err := f.svc.Reject(ctx, f.creator, wr.ID, "nope"); !errors.Is(err, payoutdomain.ErrNotAdmin) {
		t.Fatalf("creator reject: got %v", err)
	}
	if _, err := f.svc.VerifyBank(ctx, f.creator, f.creator.ID); !errors.Is(err, payoutdomain.ErrNotAdmin) {
		t.Fatalf("creator verify: got %v", err)
	}
}

func TestBankDetailsUpdateDropsVerification(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.verifiedBank(t)

	profile, err := f.svc.UpsertBankDetails(ctx, f.creator, payoutdomain.BankDetailsRequest{
		BankName:          "Second Bank",
		BankAccountNumber: "9876543210",
		BankAccountName:   "Campus Creator",
	})
	if err != nil {
		t.Fatalf("upsert bank details: %v", err)
	}
	if profile.IsBankVerified {
		t.Fatal("changing bank details must drop verification")
	}

	var verified bool
	if err := f.db.Raw("SELECT is_bank_verified FROM creator_profiles WHERE creator_id = ?", f.creator.ID).Scan(&verified).Error; err != nil {
		t.Fatalf("scan verification: %v", err)
	}
	if verified {
		t.Fatal("stored profile should be unverified after the update")
	}
}

func TestVerifyBankUnknownProfile(t *testing.T) {
	f := setup(t)
	_, err := f.svc.VerifyBank(context.Background(), f.admin, f.node.Generate())
	if !errors.Is(err, payoutdomain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
