package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/ticket/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTickets(ctx context.Context, db *gorm.DB, tickets []domain.Ticket) error {
	for i := range tickets {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO tickets (id, order_id, ticket_type_id, event_id, status, qr_token, checked_in_at, checked_in_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tickets[i].ID,
			tickets[i].OrderID,
			tickets[i].TicketTypeID,
			tickets[i].EventID,
			tickets[i].Status,
			tickets[i].QRToken,
			tickets[i].CheckedInAt,
			tickets[i].CheckedInBy,
			tickets[i].CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Detail, error) {
	var item domain.Detail
	err := db.WithContext(ctx).Raw(
		`SELECT t.id, t.order_id, t.ticket_type_id, t.event_id, t.status, t.qr_token,
			t.checked_in_at, t.checked_in_by, t.created_at,
			o.payment_status AS payment_status,
			e.organizer_id AS organizer_id
		 FROM tickets t
		 JOIN orders o ON o.id = t.order_id
		 JOIN events e ON e.id = t.event_id
		 WHERE t.id = ?
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

func (r *repo) MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, actorID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET status = ?, checked_in_at = ?, checked_in_by = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusUsed,
		at,
		actorID,
		id,
		domain.StatusValid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertScan(ctx context.Context, db *gorm.DB, scan *domain.TicketScan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ticket_scans (id, ticket_id, event_id, actor_id, result, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		scan.ID,
		scan.TicketID,
		scan.EventID,
		scan.ActorID,
		scan.Result,
		scan.ScannedAt,
	).Error
}

func (r *repo) CountByTypeForOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.TypeCount, error) {
	var items []domain.TypeCount
	err := db.WithContext(ctx).Raw(
		`SELECT ticket_type_id, COUNT(*) AS count
		 FROM tickets
		 WHERE order_id = ?
		 GROUP BY ticket_type_id
		 ORDER BY ticket_type_id`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Ticket, error) {
	var items []domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, ticket_type_id, event_id, status, qr_token, checked_in_at, checked_in_by, created_at
		 FROM tickets
		 WHERE order_id = ?
		 ORDER BY id`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
