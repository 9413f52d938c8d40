package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campustix/campustix/internal/clock"
	notificationdomain "github.com/campustix/campustix/internal/notification/domain"
	obsmetrics "github.com/campustix/campustix/internal/observability/metrics"
	"github.com/campustix/campustix/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	pollInterval = 5 * time.Second
	batchSize    = 20
	maxAttempts  = 5
	baseBackoff  = 30 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       notificationdomain.Repository
	Provider   email.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Worker drains the notification outbox in the background.
type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       notificationdomain.Repository
	provider   email.Provider
	obsMetrics *obsmetrics.Metrics

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Worker {
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("notification.worker"),
		clock:      p.Clock,
		repo:       p.Repo,
		provider:   p.Provider,
		obsMetrics: p.ObsMetrics,
	}
}

func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain processes one batch of due notifications. Exposed for tests.
func (w *Worker) Drain(ctx context.Context) {
	now := w.clock.Now().UTC()
	due, err := w.repo.ListDue(ctx, w.db, now, batchSize)
	if err != nil {
		w.log.Error("failed to list due notifications", zap.Error(err))
		return
	}
	for i := range due {
		w.deliver(ctx, &due[i])
	}
}

func (w *Worker) deliver(ctx context.Context, n *notificationdomain.Notification) {
	subject, body := render(n)
	err := w.provider.Send(ctx, []string{n.Recipient}, subject, body)
	now := w.clock.Now().UTC()

	if err == nil {
		if _, markErr := w.repo.MarkSent(ctx, w.db, n.ID, now); markErr != nil {
			w.log.Error("failed to mark notification sent", zap.Int64("id", n.ID.Int64()), zap.Error(markErr))
			return
		}
		w.obsMetrics.RecordNotificationSent(ctx, notificationdomain.StatusSent)
		return
	}

	attempts := n.Attempts + 1
	if attempts >= maxAttempts {
		if markErr := w.repo.MarkFailed(ctx, w.db, n.ID, attempts, err.Error(), now); markErr != nil {
			w.log.Error("failed to mark notification failed", zap.Int64("id", n.ID.Int64()), zap.Error(markErr))
			return
		}
		w.obsMetrics.RecordNotificationSent(ctx, notificationdomain.StatusFailed)
		w.log.Error("notification dead-lettered",
			zap.Int64("id", n.ID.Int64()),
			zap.String("type", n.Type),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return
	}

	next := now.Add(baseBackoff << (attempts - 1))
	if markErr := w.repo.MarkRetry(ctx, w.db, n.ID, attempts, next, err.Error(), now); markErr != nil {
		w.log.Error("failed to schedule notification retry", zap.Int64("id", n.ID.Int64()), zap.Error(markErr))
		return
	}
	w.log.Warn("notification delivery failed, retrying",
		zap.Int64("id", n.ID.Int64()),
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", next),
		zap.Error(err),
	)
}

func render(n *notificationdomain.Notification) (string, string) {
	data := map[string]interface{}{}
	_ = json.Unmarshal(n.TemplateData, &data)

	switch n.Type {
	case notificationdomain.TypePaymentReceipt:
		return "Your tickets are confirmed",
			fmt.Sprintf("<p>Hi %v,</p><p>Your payment for order %v was received. Your tickets are attached to your order.</p>", data["buyer_name"], data["order_id"])
	case notificationdomain.TypeWithdrawalApproved:
		return "Your withdrawal was approved",
			fmt.Sprintf("<p>Your withdrawal request %v has been approved and is on its way to your bank account.</p>", data["withdrawal_id"])
	case notificationdomain.TypeWithdrawalRejected:
		return "Your withdrawal was rejected",
			fmt.Sprintf("<p>Your withdrawal request %v was rejected: %v</p>", data["withdrawal_id"], data["reason"])
	default:
		return "Notification", "<p>You have a new notification.</p>"
	}
}
