package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"github.com/campustix/campustix/internal/clock"
	eventdomain "github.com/campustix/campustix/internal/event/domain"
	eventrepo "github.com/campustix/campustix/internal/event/repository"
	eventservice "github.com/campustix/campustix/internal/event/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE events (
			id BIGINT PRIMARY KEY,
			organizer_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			venue TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			starts_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE ticket_types (
			id BIGINT PRIMARY KEY,
			event_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			price BIGINT NOT NULL DEFAULT 0,
			quantity BIGINT NOT NULL DEFAULT 0,
			sold_count BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB) (eventdomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(20)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	svc := eventservice.NewService(eventservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  eventrepo.Provide(),
	})
	return svc, node
}

func organizer(node *snowflake.Node) actorcontext.Actor {
	return actorcontext.Actor{ID: node.Generate(), Role: actorcontext.RoleOrganizer}
}

func TestCreateEventRequiresOrganizer(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db)

	attendee := actorcontext.Actor{ID: node.Generate(), Role: actorcontext.RoleAttendee}
	_, err := svc.Create(ctx, attendee, eventdomain.CreateEventRequest{Title: "Freshers Night"})
	if !errors.Is(err, eventdomain.ErrNotOrganizer) {
		t.Fatalf("expected ErrNotOrganizer, got %v", err)
	}

	event, err := svc.Create(ctx, organizer(node), eventdomain.CreateEventRequest{Title: "Freshers Night", Venue: "Main Hall"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.Status != eventdomain.StatusDraft {
		t.Fatalf("expected draft status, got %s", event.Status)
	}
}

func TestEventStatusTransitions(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db)
	actor := organizer(node)

	event, err := svc.Create(ctx, actor, eventdomain.CreateEventRequest{Title: "Tech Fest"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, actor, event.ID, eventdomain.StatusCompleted); !errors.Is(err, eventdomain.ErrStatusTransition) {
		t.Fatalf("draft to completed should fail, got %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, actor, event.ID, eventdomain.StatusActive); err != nil {
		t.Fatalf("draft to active: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, actor, event.ID, eventdomain.StatusCompleted); err != nil {
		t.Fatalf("active to completed: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, actor, event.ID, eventdomain.StatusCancelled); err != nil {
		t.Fatalf("completed to cancelled: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, actor, event.ID, eventdomain.StatusActive); !errors.Is(err, eventdomain.ErrStatusTransition) {
		t.Fatalf("cancelled event should be terminal, got %v", err)
	}
}

func TestUpdateStatusRejectsForeignOrganizer(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db)

	event, err := svc.Create(ctx, organizer(node), eventdomain.CreateEventRequest{Title: "Open Mic"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	other := organizer(node)
	if _, err := svc.UpdateStatus(ctx, other, event.ID, eventdomain.StatusActive); !errors.Is(err, eventdomain.ErrNotOrganizer) {
		t.Fatalf("expected ErrNotOrganizer, got %v", err)
	}
}

func TestAddTicketTypeValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db)
	actor := organizer(node)

	event, err := svc.Create(ctx, actor, eventdomain.CreateEventRequest{Title: "Career Fair"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if _, err := svc.AddTicketType(ctx, actor, event.ID, eventdomain.AddTicketTypeRequest{Name: "Regular", Price: -1, Quantity: 10}); !errors.Is(err, eventdomain.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := svc.AddTicketType(ctx, actor, event.ID, eventdomain.AddTicketTypeRequest{Name: "Regular", Price: 5000, Quantity: 0}); !errors.Is(err, eventdomain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	tt, err := svc.AddTicketType(ctx, actor, event.ID, eventdomain.AddTicketTypeRequest{Name: "Regular", Price: 5000, Quantity: 100})
	if err != nil {
		t.Fatalf("add ticket type: %v", err)
	}
	if tt.SoldCount != 0 {
		t.Fatalf("new type should start with zero sold, got %d", tt.SoldCount)
	}
}

func TestCommitSoldEnforcesCapacity(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db)
	actor := organizer(node)
	repo := eventrepo.Provide()

	event, err := svc.Create(ctx, actor, eventdomain.CreateEventRequest{Title: "Gala"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	tt, err := svc.AddTicketType(ctx, actor, event.ID, eventdomain.AddTicketTypeRequest{Name: "VIP", Price: 20000, Quantity: 5})
	if err != nil {
		t.Fatalf("add ticket type: %v", err)
	}

	now := time.Now().UTC()
	committed, err := repo.CommitSold(ctx, db, tt.ID, 3, now)
	if err != nil || !committed {
		t.Fatalf("first commit should pass: committed=%v err=%v", committed, err)
	}
	committed, err = repo.CommitSold(ctx, db, tt.ID, 3, now)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if committed {
		t.Fatal("commit past capacity should be refused")
	}

	var sold int64
	if err := db.Raw("SELECT sold_count FROM ticket_types WHERE id = ?", tt.ID).Scan(&sold).Error; err != nil {
		t.Fatalf("scan sold_count: %v", err)
	}
	if sold != 3 {
		t.Fatalf("sold_count should stay at 3, got %d", sold)
	}
}

func TestReserveCheckReportsSoldOut(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db)
	actor := organizer(node)

	event, err := svc.Create(ctx, actor, eventdomain.CreateEventRequest{Title: "Hackathon"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	tt, err := svc.AddTicketType(ctx, actor, event.ID, eventdomain.AddTicketTypeRequest{Name: "Seat", Price: 1000, Quantity: 2})
	if err != nil {
		t.Fatalf("add ticket type: %v", err)
	}

	if err := svc.ReserveCheck(ctx, tt.ID, 2); err != nil {
		t.Fatalf("reserve within capacity: %v", err)
	}
	if err := svc.ReserveCheck(ctx, tt.ID, 3); !errors.Is(err, eventdomain.ErrSoldOut) {
		t.Fatalf("expected ErrSoldOut, got %v", err)
	}
}
