package order

import (
	"github.com/campustix/campustix/internal/order/repository"
	"github.com/campustix/campustix/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
