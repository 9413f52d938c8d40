package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"github.com/campustix/campustix/internal/clock"
	eventdomain "github.com/campustix/campustix/internal/event/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  eventdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  eventdomain.Repository
}

func NewService(p Params) eventdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("event.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, actor actorcontext.Actor, req eventdomain.CreateEventRequest) (*eventdomain.Event, error) {
	if !actor.IsOrganizer() && !actor.IsAdmin() {
		return nil, eventdomain.ErrNotOrganizer
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, eventdomain.ErrInvalidTitle
	}
	req.Venue = strings.TrimSpace(req.Venue)

	now := s.clock.Now().UTC()
	event := eventdomain.Event{
		ID:          s.genID.Generate(),
		OrganizerID: actor.ID,
		Title:       req.Title,
		Venue:       req.Venue,
		Status:      eventdomain.StatusDraft,
		StartsAt:    req.StartsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertEvent(ctx, s.db, &event); err != nil {
		return nil, err
	}

	s.log.Info("event created",
		zap.Int64("event_id", event.ID.Int64()),
		zap.Int64("organizer_id", actor.ID.Int64()),
	)
	return &event, nil
}

func (s *Service) UpdateStatus(ctx context.Context, actor actorcontext.Actor, eventID snowflake.ID, status string) (*eventdomain.Event, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case eventdomain.StatusActive, eventdomain.StatusCompleted, eventdomain.StatusCancelled:
	default:
		return nil, eventdomain.ErrInvalidStatus
	}

	event, err := s.loadOwned(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	if !legalTransition(event.Status, status) {
		return nil, eventdomain.ErrStatusTransition
	}

	now := s.clock.Now().UTC()
	updated, err := s.repo.UpdateEventStatus(ctx, s.db, eventID, event.Status, status, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, eventdomain.ErrStatusTransition
	}

	event.Status = status
	event.UpdatedAt = now
	s.log.Info("event status changed",
		zap.Int64("event_id", eventID.Int64()),
		zap.String("status", status),
	)
	return event, nil
}

func (s *Service) AddTicketType(ctx context.Context, actor actorcontext.Actor, eventID snowflake.ID, req eventdomain.AddTicketTypeRequest) (*eventdomain.TicketType, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, eventdomain.ErrInvalidTitle
	}
	if req.Price < 0 {
		return nil, eventdomain.ErrInvalidPrice
	}
	if req.Quantity < 1 {
		return nil, eventdomain.ErrInvalidQuantity
	}

	if _, err := s.loadOwned(ctx, actor, eventID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	tt := eventdomain.TicketType{
		ID:        s.genID.Generate(),
		EventID:   eventID,
		Name:      req.Name,
		Price:     req.Price,
		Quantity:  req.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertTicketType(ctx, s.db, &tt); err != nil {
		return nil, err
	}
	return &tt, nil
}

func (s *Service) GetWithTypes(ctx context.Context, eventID snowflake.ID) (*eventdomain.EventWithTypes, error) {
	event, err := s.repo.FindEvent(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, eventdomain.ErrNotFound
	}
	types, err := s.repo.ListTicketTypes(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	return &eventdomain.EventWithTypes{Event: *event, TicketTypes: types}, nil
}

// ReserveCheck is advisory. Capacity is only guaranteed by CommitSold at
// payment time.
func (s *Service) ReserveCheck(ctx context.Context, typeID snowflake.ID, qty int64) error {
	if qty < 1 {
		return eventdomain.ErrInvalidQuantity
	}
	tt, err := s.repo.FindTicketType(ctx, s.db, typeID)
	if err != nil {
		return err
	}
	if tt == nil {
		return eventdomain.ErrTicketTypeNotFound
	}
	if tt.Available() < qty {
		return eventdomain.ErrSoldOut
	}
	return nil
}

func (s *Service) loadOwned(ctx context.Context, actor actorcontext.Actor, eventID snowflake.ID) (*eventdomain.Event, error) {
	event, err := s.repo.FindEvent(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, eventdomain.ErrNotFound
	}
	if event.OrganizerID != actor.ID && !actor.IsAdmin() {
		return nil, eventdomain.ErrNotOrganizer
	}
	return event, nil
}

func legalTransition(from, to string) bool {
	if to == eventdomain.StatusCancelled {
		return from != eventdomain.StatusCancelled
	}
	switch from {
	case eventdomain.StatusDraft:
		return to == eventdomain.StatusActive
	case eventdomain.StatusActive:
		return to == eventdomain.StatusCompleted
	default:
		return false
	}
}
