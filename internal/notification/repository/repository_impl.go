package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (
			id, type, recipient, template_data, status, attempts,
			next_attempt_at, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.Type,
		n.Recipient,
		n.TemplateData,
		n.Status,
		n.Attempts,
		n.NextAttemptAt,
		n.LastError,
		n.CreatedAt,
		n.UpdatedAt,
	).Error
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Notification, error) {
	var items []domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, type, recipient, template_data, status, attempts,
			next_attempt_at, last_error, created_at, updated_at
		 FROM notifications
		 WHERE status = ? AND next_attempt_at <= ?
		 ORDER BY next_attempt_at
		 LIMIT ?`,
		domain.StatusPending,
		now,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusSent,
		at,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkRetry(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, nextAttemptAt time.Time, lastError string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		attempts,
		nextAttemptAt,
		lastError,
		at,
		id,
		domain.StatusPending,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFailed,
		attempts,
		lastError,
		at,
		id,
		domain.StatusPending,
	).Error
}
