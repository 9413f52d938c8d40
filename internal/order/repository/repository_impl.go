package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, event_id, buyer_email, buyer_name, buyer_account_id,
			payment_reference, gateway_reference, total_amount, payment_status,
			paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.EventID,
		order.BuyerEmail,
		order.BuyerName,
		order.BuyerAccountID,
		order.PaymentReference,
		order.GatewayReference,
		order.TotalAmount,
		order.PaymentStatus,
		order.PaidAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, buyer_email, buyer_name, buyer_account_id,
			payment_reference, gateway_reference, total_amount, payment_status,
			paid_at, created_at, updated_at
		 FROM orders
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

// MarkPaid flips pending to paid. The predicate makes the flip happen at
// most once; the winner owns the downstream effects.
func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayRef string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET payment_status = ?, gateway_reference = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		domain.PaymentStatusPaid,
		gatewayRef,
		at,
		at,
		id,
		domain.PaymentStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayRef string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET payment_status = ?, gateway_reference = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		domain.PaymentStatusFailed,
		gatewayRef,
		at,
		id,
		domain.PaymentStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
