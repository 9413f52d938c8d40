package payment

import (
	"github.com/campustix/campustix/internal/config"
	"github.com/campustix/campustix/internal/payment/gateway"
	"github.com/campustix/campustix/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(func(cfg config.Config, log *zap.Logger) gateway.Gateway {
		return gateway.NewClient(gateway.Config{
			BaseURL: cfg.GatewayBaseURL,
			Secret:  cfg.GatewaySecret,
			Timeout: cfg.GatewayTimeout,
		}, log)
	}),
	fx.Provide(service.NewService),
)
