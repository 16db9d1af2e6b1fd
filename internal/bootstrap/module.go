package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"repairtrack/internal/bootstrap/config"
	"repairtrack/internal/bootstrap/database"
	"repairtrack/internal/bootstrap/logging"
	cacheinfra "repairtrack/internal/infrastructure/cache"
	notifyinfra "repairtrack/internal/infrastructure/notify"
	sqliterepo "repairtrack/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "repairtrack/internal/infrastructure/persistence/sqlite/uow"
	"repairtrack/internal/ports"
	"repairtrack/internal/transport/channel"
	usecasenotify "repairtrack/internal/usecase/notify"
	usecaserepair "repairtrack/internal/usecase/repair"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewRepairRepository,
			fx.As(new(ports.RepairRepository)),
			fx.As(new(ports.RepairReadRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewNotificationRepository,
			fx.As(new(ports.NotificationRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideBus),
	fx.Provide(usecaserepair.NewService),
	fx.Provide(provideDispatcher),
	fx.Provide(provideSenders),
	fx.Provide(provideDeliveryWorker),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideBus(cfg config.Config) *channel.Bus {
	return channel.NewBus(cfg.Notifier.DispatchBuffer, cfg.Notifier.BusBufferSize)
}

func provideDispatcher(notifications ports.NotificationRepository, repairs ports.RepairReadRepository, cache ports.Cache, cfg config.Config) *usecasenotify.Dispatcher {
	return usecasenotify.NewDispatcher(notifications, repairs, cache, cfg.Notifier.Channels)
}

func provideSenders(lc fx.Lifecycle, ctx context.Context, cfg config.Config) ([]ports.ChannelSender, error) {
	senders := []ports.ChannelSender{
		notifyinfra.NewWebhookSender(cfg.Notifier.WebhookURL, cfg.Notifier.WebhookSecret),
	}

	if cfg.Notifier.NATSURL != "" {
		push, err := notifyinfra.NewPushSender(cfg.Notifier.NATSURL, cfg.Notifier.NATSSubject)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				push.Close()
				return nil
			},
		})
		senders = append(senders, push)
	} else {
		logging.Warn(ctx, "nats url not configured, push channel disabled")
	}

	return senders, nil
}

func provideDeliveryWorker(notifications ports.NotificationRepository, senders []ports.ChannelSender, cfg config.Config) *usecasenotify.DeliveryWorker {
	return usecasenotify.NewDeliveryWorker(notifications, senders, usecasenotify.WorkerConfig{
		MaxAttempts:  cfg.Notifier.MaxAttempts,
		PollInterval: cfg.Notifier.PollInterval,
		SendTimeout:  cfg.Notifier.SendTimeout,
		MaxParallel:  cfg.Notifier.MaxParallel,
	})
}
