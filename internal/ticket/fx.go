package ticket

import (
	"github.com/campustix/campustix/internal/config"
	"github.com/campustix/campustix/internal/ticket/repository"
	"github.com/campustix/campustix/internal/ticket/service"
	"github.com/campustix/campustix/internal/ticket/token"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(func(cfg config.Config) *token.Codec {
		return token.NewCodec(cfg.TicketTokenSecret)
	}),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
