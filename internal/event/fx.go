package event

import (
	"github.com/campustix/campustix/internal/event/repository"
	"github.com/campustix/campustix/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
