package payout

import (
	"github.com/campustix/campustix/internal/payout/repository"
	"github.com/campustix/campustix/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
