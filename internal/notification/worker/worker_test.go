package worker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/clock"
	notificationdomain "github.com/campustix/campustix/internal/notification/domain"
	notificationrepo "github.com/campustix/campustix/internal/notification/repository"
	notificationservice "github.com/campustix/campustix/internal/notification/service"
	"github.com/campustix/campustix/internal/notification/worker"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeProvider struct {
	mu   sync.Mutex
	fail bool
	sent [][]string
}

func (p *fakeProvider) Send(_ context.Context, to []string, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("smtp connection refused")
	}
	p.sent = append(p.sent, to)
	return nil
}

func (p *fakeProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Exec(`CREATE TABLE notifications (
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
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	provider *fakeProvider
	worker   *worker.Worker
	notifier notificationdomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(25)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC))
	repo := notificationrepo.Provide()
	provider := &fakeProvider{}

	return &fixture{
		db:       db,
		clock:    fakeClock,
		provider: provider,
		worker: worker.New(worker.Params{
			DB:       db,
			Log:      zap.NewNop(),
			Clock:    fakeClock,
			Repo:     repo,
			Provider: provider,
		}),
		notifier: notificationservice.NewService(notificationservice.Params{
			Log:   zap.NewNop(),
			GenID: node,
			Clock: fakeClock,
			Repo:  repo,
		}),
	}
}

func (f *fixture) enqueue(t *testing.T) {
	t.Helper()
	err := f.notifier.Enqueue(context.Background(), f.db, notificationdomain.TypePaymentReceipt, "ada@campus.edu", map[string]interface{}{
		"buyer_name": "Ada",
		"order_id":   "12345",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

type row struct {
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     *string
}

func (f *fixture) row(t *testing.T) row {
	t.Helper()
	var r row
	if err := f.db.Raw("SELECT status, attempts, next_attempt_at, last_error FROM notifications LIMIT 1").Scan(&r).Error; err != nil {
		t.Fatalf("read notification: %v", err)
	}
	return r
}

func TestDrainDeliversPendingNotifications(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.enqueue(t)

	f.worker.Drain(ctx)

	if f.provider.sentCount() != 1 {
		t.Fatalf("expected one delivery, got %d", f.provider.sentCount())
	}
	if r := f.row(t); r.Status != notificationdomain.StatusSent {
		t.Fatalf("expected sent, got %s", r.Status)
	}

	// Sent rows never get picked up again.
	f.worker.Drain(ctx)
	if f.provider.sentCount() != 1 {
		t.Fatalf("sent notification redelivered: %d", f.provider.sentCount())
	}
}

func TestDrainRetriesWithBackoff(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.enqueue(t)
	f.provider.fail = true

	f.worker.Drain(ctx)

	r := f.row(t)
	if r.Status != notificationdomain.StatusPending {
		t.Fatalf("failed delivery should stay pending, got %s", r.Status)
	}
	if r.Attempts != 1 {
		t.Fatalf("expected one attempt, got %d", r.Attempts)
	}
	if !r.NextAttemptAt.After(f.clock.Now()) {
		t.Fatalf("retry should be scheduled in the future, got %v", r.NextAttemptAt)
	}
	if r.LastError == nil || !strings.Contains(*r.LastError, "smtp") {
		t.Fatal("delivery error should be recorded")
	}

	// Not due yet.
	f.worker.Drain(ctx)
	if got := f.row(t).Attempts; got != 1 {
		t.Fatalf("early drain should skip the row, attempts %d", got)
	}

	// Due after the backoff passes, and the provider has recovered.
	f.provider.fail = false
	f.clock.Advance(time.Minute)
	f.worker.Drain(ctx)
	if r := f.row(t); r.Status != notificationdomain.StatusSent {
		t.Fatalf("expected sent after retry, got %s", r.Status)
	}
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.enqueue(t)
	f.provider.fail = true

	for i := 0; i < 5; i++ {
		f.worker.Drain(ctx)
		f.clock.Advance(24 * time.Hour)
	}

	r := f.row(t)
	if r.Status != notificationdomain.StatusFailed {
		t.Fatalf("expected dead-lettered notification, got %s", r.Status)
	}
	if r.Attempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", r.Attempts)
	}

	// Dead letters stay dead even when the provider recovers.
	f.provider.fail = false
	f.clock.Advance(24 * time.Hour)
	f.worker.Drain(ctx)
	if f.provider.sentCount() != 0 {
		t.Fatal("failed notification must not be redelivered")
	}
}
