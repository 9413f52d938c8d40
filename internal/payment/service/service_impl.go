package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/clock"
	eventdomain "github.com/campustix/campustix/internal/event/domain"
	notificationdomain "github.com/campustix/campustix/internal/notification/domain"
	obsmetrics "github.com/campustix/campustix/internal/observability/metrics"
	orderdomain "github.com/campustix/campustix/internal/order/domain"
	paymentdomain "github.com/campustix/campustix/internal/payment/domain"
	"github.com/campustix/campustix/internal/payment/gateway"
	ticketdomain "github.com/campustix/campustix/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Gateway    gateway.Gateway
	OrderRepo  orderdomain.Repository
	EventRepo  eventdomain.Repository
	TicketRepo ticketdomain.Repository
	Notifier   notificationdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	gateway    gateway.Gateway
	orderRepo  orderdomain.Repository
	eventRepo  eventdomain.Repository
	ticketRepo ticketdomain.Repository
	notifier   notificationdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		clock:      p.Clock,
		gateway:    p.Gateway,
		orderRepo:  p.OrderRepo,
		eventRepo:  p.EventRepo,
		ticketRepo: p.TicketRepo,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Confirm(ctx context.Context, req paymentdomain.ConfirmRequest) (*paymentdomain.ConfirmResponse, error) {
	req.Reference = strings.TrimSpace(req.Reference)
	if req.OrderID == 0 || req.Reference == "" {
		return nil, paymentdomain.ErrInvalidReference
	}

	order, err := s.orderRepo.FindByID(ctx, s.db, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrNotFound
	}

	switch order.PaymentStatus {
	case orderdomain.PaymentStatusPaid:
		if referenceMatches(order, req.Reference) {
			return successResponse(order.ID), nil
		}
		return nil, paymentdomain.ErrOrderNotPending
	case orderdomain.PaymentStatusFailed:
		if referenceMatches(order, req.Reference) {
			return failedResponse(order.ID), nil
		}
		return nil, paymentdomain.ErrOrderNotPending
	case orderdomain.PaymentStatusPending:
	default:
		return nil, paymentdomain.ErrOrderNotPending
	}

	txn, err := s.gateway.VerifyTransaction(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if txn.OrderID != order.ID {
		return nil, paymentdomain.ErrReferenceMismatch
	}

	switch txn.Status {
	case gateway.StatusSuccess:
		if txn.Amount != order.TotalAmount {
			return nil, paymentdomain.ErrAmountMismatch
		}
		return s.settle(ctx, order, req.Reference)
	case gateway.StatusFailed, gateway.StatusAbandoned:
		return s.fail(ctx, order, req.Reference)
	default:
		// Transaction still in flight at the provider; leave the order alone.
		return &paymentdomain.ConfirmResponse{
			Verified:      false,
			OrderID:       order.ID,
			PaymentStatus: orderdomain.PaymentStatusPending,
		}, nil
	}
}

// settle finalizes a verified payment. The pending→paid flip, the inventory
// commit and the receipt enqueue share one transaction so they land exactly
// once, on the confirm call that wins the flip.
func (s *Service) settle(ctx context.Context, order *orderdomain.Order, reference string) (*paymentdomain.ConfirmResponse, error) {
	now := s.clock.Now().UTC()

	var won bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = s.orderRepo.MarkPaid(ctx, tx, order.ID, reference, now)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		counts, err := s.ticketRepo.CountByTypeForOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for _, c := range counts {
			committed, err := s.eventRepo.CommitSold(ctx, tx, c.TicketTypeID, c.Count, now)
			if err != nil {
				return err
			}
			if !committed {
				return eventdomain.ErrSoldOut
			}
		}

		return s.notifier.Enqueue(ctx, tx, notificationdomain.TypePaymentReceipt, order.BuyerEmail, map[string]interface{}{
			"order_id":     order.ID.String(),
			"buyer_name":   order.BuyerName,
			"total_amount": order.TotalAmount,
		})
	})
	if err != nil {
		return nil, err
	}

	if !won {
		// A concurrent confirm got there first; re-read and report its outcome.
		current, err := s.orderRepo.FindByID(ctx, s.db, order.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.PaymentStatus == orderdomain.PaymentStatusPaid {
			return successResponse(order.ID), nil
		}
		return nil, paymentdomain.ErrOrderNotPending
	}

	s.obsMetrics.RecordPaymentReconciled(ctx, orderdomain.PaymentStatusPaid)
	s.log.Info("payment confirmed",
		zap.Int64("order_id", order.ID.Int64()),
		zap.String("reference", reference),
		zap.Int64("amount", order.TotalAmount),
	)
	return successResponse(order.ID), nil
}

func (s *Service) fail(ctx context.Context, order *orderdomain.Order, reference string) (*paymentdomain.ConfirmResponse, error) {
	now := s.clock.Now().UTC()
	flipped, err := s.orderRepo.MarkFailed(ctx, s.db, order.ID, reference, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		current, err := s.orderRepo.FindByID(ctx, s.db, order.ID)
		if err != nil {
			return nil, err
		}
		if current == nil || current.PaymentStatus != orderdomain.PaymentStatusFailed {
			return nil, paymentdomain.ErrOrderNotPending
		}
	}

	s.obsMetrics.RecordPaymentReconciled(ctx, orderdomain.PaymentStatusFailed)
	s.log.Info("payment rejected by gateway",
		zap.Int64("order_id", order.ID.Int64()),
		zap.String("reference", reference),
	)
	return failedResponse(order.ID), nil
}

func referenceMatches(order *orderdomain.Order, reference string) bool {
	if order.PaymentReference == reference {
		return true
	}
	return order.GatewayReference != nil && *order.GatewayReference == reference
}

func successResponse(orderID snowflake.ID) *paymentdomain.ConfirmResponse {
	return &paymentdomain.ConfirmResponse{
		Verified:      true,
		OrderID:       orderID,
		PaymentStatus: orderdomain.PaymentStatusPaid,
	}
}

func failedResponse(orderID snowflake.ID) *paymentdomain.ConfirmResponse {
	return &paymentdomain.ConfirmResponse{
		Verified:      false,
		OrderID:       orderID,
		PaymentStatus: orderdomain.PaymentStatusFailed,
	}
}
