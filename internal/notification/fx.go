package notification

import (
	"context"

	"github.com/campustix/campustix/internal/notification/repository"
	"github.com/campustix/campustix/internal/notification/service"
	"github.com/campustix/campustix/internal/notification/worker"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(worker.New),
	fx.Invoke(func(lc fx.Lifecycle, w *worker.Worker) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				w.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return w.Stop(ctx)
			},
		})
	}),
)
