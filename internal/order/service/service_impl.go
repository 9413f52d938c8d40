package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/clock"
	eventdomain "github.com/campustix/campustix/internal/event/domain"
	obsmetrics "github.com/campustix/campustix/internal/observability/metrics"
	orderdomain "github.com/campustix/campustix/internal/order/domain"
	ticketdomain "github.com/campustix/campustix/internal/ticket/domain"
	"github.com/campustix/campustix/internal/ticket/token"
	pkgdb "github.com/campustix/campustix/pkg/db"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       orderdomain.Repository
	EventRepo  eventdomain.Repository
	TicketRepo ticketdomain.Repository
	Tokens     *token.Codec
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       orderdomain.Repository
	eventRepo  eventdomain.Repository
	ticketRepo ticketdomain.Repository
	tokens     *token.Codec
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("order.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		eventRepo:  p.EventRepo,
		ticketRepo: p.TicketRepo,
		tokens:     p.Tokens,
		obsMetrics: p.ObsMetrics,
	}
}

// Place creates a pending order and its tickets as one unit. Inventory is
// not consumed here; sold_count moves only when payment is confirmed.
func (s *Service) Place(ctx context.Context, req orderdomain.PlaceOrderRequest) (*orderdomain.PlaceOrderResponse, error) {
	req.BuyerEmail = strings.TrimSpace(strings.ToLower(req.BuyerEmail))
	req.BuyerName = strings.TrimSpace(req.BuyerName)
	if req.BuyerEmail == "" || !strings.Contains(req.BuyerEmail, "@") || req.BuyerName == "" {
		return nil, orderdomain.ErrInvalidBuyer
	}
	if len(req.Lines) == 0 {
		return nil, orderdomain.ErrEmptyOrder
	}

	lines, err := normalizeLines(req.Lines)
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.FindEvent(ctx, s.db, req.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, eventdomain.ErrNotFound
	}
	if event.Status != eventdomain.StatusActive {
		return nil, orderdomain.ErrEventNotActive
	}

	// Fail fast on capacity before any write. The binding check happens
	// again inside CommitSold at payment time.
	var total int64
	types := make(map[snowflake.ID]*eventdomain.TicketType, len(lines))
	for _, line := range lines {
		tt, err := s.eventRepo.FindTicketType(ctx, s.db, line.TicketTypeID)
		if err != nil {
			return nil, err
		}
		if tt == nil || tt.EventID != event.ID {
			return nil, orderdomain.ErrTypeNotInEvent
		}
		if tt.Available() < line.Quantity {
			return nil, eventdomain.ErrSoldOut
		}
		types[line.TicketTypeID] = tt
		total += tt.Price * line.Quantity
	}
	// A zero-amount order has nothing the gateway could ever verify.
	if total <= 0 {
		return nil, orderdomain.ErrEmptyOrder
	}

	reference := strings.TrimSpace(req.PaymentReference)
	if reference == "" {
		reference = uuid.NewString()
	}

	now := s.clock.Now().UTC()
	order := orderdomain.Order{
		ID:               s.genID.Generate(),
		EventID:          event.ID,
		BuyerEmail:       req.BuyerEmail,
		BuyerName:        req.BuyerName,
		BuyerAccountID:   req.BuyerAccountID,
		PaymentReference: reference,
		TotalAmount:      total,
		PaymentStatus:    orderdomain.PaymentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var tickets []ticketdomain.Ticket
	for _, line := range lines {
		for i := int64(0); i < line.Quantity; i++ {
			ticketID := s.genID.Generate()
			qr, err := s.tokens.Mint(token.Claims{
				TicketID: ticketID,
				OrderID:  order.ID,
				EventID:  event.ID,
				IssuedAt: now.Unix(),
			})
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, ticketdomain.Ticket{
				ID:           ticketID,
				OrderID:      order.ID,
				TicketTypeID: line.TicketTypeID,
				EventID:      event.ID,
				Status:       ticketdomain.StatusValid,
				QRToken:      qr,
				CreatedAt:    now,
			})
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.ticketRepo.InsertTickets(ctx, tx, tickets)
	})
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, orderdomain.ErrDuplicateReference
		}
		return nil, err
	}

	s.obsMetrics.RecordOrderPlaced(ctx)
	s.log.Info("order placed",
		zap.Int64("order_id", order.ID.Int64()),
		zap.Int64("event_id", event.ID.Int64()),
		zap.Int64("total_amount", total),
		zap.Int("tickets", len(tickets)),
	)
	return &orderdomain.PlaceOrderResponse{Order: order, Tickets: tickets}, nil
}

func (s *Service) Get(ctx context.Context, orderID snowflake.ID) (*orderdomain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrNotFound
	}
	return order, nil
}

// normalizeLines merges duplicate ticket types and validates quantities.
func normalizeLines(lines []orderdomain.Line) ([]orderdomain.Line, error) {
	merged := make(map[snowflake.ID]int64, len(lines))
	order := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		if line.TicketTypeID == 0 {
			return nil, orderdomain.ErrTypeNotInEvent
		}
		if line.Quantity < 1 {
			return nil, orderdomain.ErrInvalidQuantity
		}
		if _, seen := merged[line.TicketTypeID]; !seen {
			order = append(order, line.TicketTypeID)
		}
		merged[line.TicketTypeID] += line.Quantity
	}
	out := make([]orderdomain.Line, 0, len(order))
	for _, id := range order {
		qty := merged[id]
		if qty > orderdomain.MaxQuantityPerType {
			return nil, orderdomain.ErrInvalidQuantity
		}
		out = append(out, orderdomain.Line{TicketTypeID: id, Quantity: qty})
	}
	return out, nil
}
