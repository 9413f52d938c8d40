package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/clock"
	notificationdomain "github.com/campustix/campustix/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  notificationdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  notificationdomain.Repository
}

func NewService(p Params) notificationdomain.Service {
	return &Service{
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Enqueue writes the outbox row on the caller's transaction. Delivery is
// the worker's job; callers never wait on it.
func (s *Service) Enqueue(ctx context.Context, tx *gorm.DB, typ, recipient string, data map[string]interface{}) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		s.log.Warn("dropping notification without recipient", zap.String("type", typ))
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	return s.repo.Insert(ctx, tx, &notificationdomain.Notification{
		ID:            s.genID.Generate(),
		Type:          typ,
		Recipient:     recipient,
		TemplateData:  datatypes.JSON(payload),
		Status:        notificationdomain.StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}
