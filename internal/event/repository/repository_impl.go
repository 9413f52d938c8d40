package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events (id, organizer_id, title, venue, status, starts_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OrganizerID,
		event.Title,
		event.Venue,
		event.Status,
		event.StartsAt,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Event, error) {
	var item domain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, organizer_id, title, venue, status, starts_at, created_at, updated_at
		 FROM events
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

func (r *repo) UpdateEventStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE events
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		at,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertTicketType(ctx context.Context, db *gorm.DB, tt *domain.TicketType) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ticket_types (id, event_id, name, price, quantity, sold_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tt.ID,
		tt.EventID,
		tt.Name,
		tt.Price,
		tt.Quantity,
		tt.SoldCount,
		tt.CreatedAt,
		tt.UpdatedAt,
	).Error
}

func (r *repo) FindTicketType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.TicketType, error) {
	var item domain.TicketType
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, name, price, quantity, sold_count, created_at, updated_at
		 FROM ticket_types
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

func (r *repo) ListTicketTypes(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]domain.TicketType, error) {
	var items []domain.TicketType
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, name, price, quantity, sold_count, created_at, updated_at
		 FROM ticket_types
		 WHERE event_id = ?
		 ORDER BY id`,
		eventID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CommitSold is the only write path for sold_count. The bound lives in the
// predicate so a concurrent oversell loses the update instead of corrupting
// the counter.
func (r *repo) CommitSold(ctx context.Context, db *gorm.DB, typeID snowflake.ID, qty int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE ticket_types
		 SET sold_count = sold_count + ?, updated_at = ?
		 WHERE id = ? AND sold_count + ? <= quantity`,
		qty,
		at,
		typeID,
		qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
