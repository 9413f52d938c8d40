package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"github.com/campustix/campustix/internal/clock"
	obsmetrics "github.com/campustix/campustix/internal/observability/metrics"
	orderdomain "github.com/campustix/campustix/internal/order/domain"
	ticketdomain "github.com/campustix/campustix/internal/ticket/domain"
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
	Repo       ticketdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ticketdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ticketdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ticket.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

// Resolve looks a ticket up for display. Tickets on unpaid orders do not
// exist as far as callers are concerned.
func (s *Service) Resolve(ctx context.Context, ticketID snowflake.ID) (*ticketdomain.Ticket, error) {
	detail, err := s.repo.FindDetail(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}
	if detail == nil || detail.PaymentStatus != orderdomain.PaymentStatusPaid {
		return nil, ticketdomain.ErrNotFound
	}
	ticket := detail.Ticket
	return &ticket, nil
}

func (s *Service) CheckIn(ctx context.Context, actor actorcontext.Actor, ticketID snowflake.ID) (*ticketdomain.CheckInResult, error) {
	detail, err := s.repo.FindDetail(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, ticketdomain.ErrNotFound
	}
	if detail.OrganizerID != actor.ID && !actor.IsAdmin() {
		return nil, ticketdomain.ErrNotOrganizer
	}

	now := s.clock.Now().UTC()

	if detail.PaymentStatus != orderdomain.PaymentStatusPaid {
		s.appendScan(ctx, detail, actor, ticketdomain.ScanRejected, now)
		return nil, ticketdomain.ErrOrderNotPaid
	}

	switch detail.Status {
	case ticketdomain.StatusCancelled:
		s.appendScan(ctx, detail, actor, ticketdomain.ScanRejected, now)
		return nil, ticketdomain.ErrTicketCancelled
	case ticketdomain.StatusUsed:
		s.appendScan(ctx, detail, actor, ticketdomain.ScanDuplicate, now)
		return nil, ticketdomain.ErrAlreadyValidated
	}

	used, err := s.repo.MarkUsed(ctx, s.db, ticketID, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if !used {
		// A concurrent scan won the flip between our read and the update.
		s.appendScan(ctx, detail, actor, ticketdomain.ScanDuplicate, now)
		return nil, ticketdomain.ErrAlreadyValidated
	}

	s.appendScan(ctx, detail, actor, ticketdomain.ScanAccepted, now)

	ticket := detail.Ticket
	ticket.Status = ticketdomain.StatusUsed
	ticket.CheckedInAt = &now
	actorID := actor.ID
	ticket.CheckedInBy = &actorID

	s.log.Info("ticket checked in",
		zap.Int64("ticket_id", ticketID.Int64()),
		zap.Int64("actor_id", actor.ID.Int64()),
	)
	return &ticketdomain.CheckInResult{Ticket: ticket, Result: ticketdomain.ScanAccepted}, nil
}

// appendScan records the attempt in the audit trail. The scan row is best
// effort relative to the check-in outcome.
func (s *Service) appendScan(ctx context.Context, detail *ticketdomain.Detail, actor actorcontext.Actor, result string, at time.Time) {
	scan := ticketdomain.TicketScan{
		ID:        s.genID.Generate(),
		TicketID:  detail.ID,
		EventID:   detail.EventID,
		ActorID:   actor.ID,
		Result:    result,
		ScannedAt: at,
	}
	if err := s.repo.InsertScan(ctx, s.db, &scan); err != nil {
		s.log.Error("failed to record ticket scan",
			zap.Int64("ticket_id", detail.ID.Int64()),
			zap.String("result", result),
			zap.Error(err),
		)
	}
	s.obsMetrics.RecordTicketScan(ctx, result)
}
