package app

import (
	"context"
	"errors"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ilindan-dev/local-notifier/internal/client"
	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/consumer"
	deliveryHTTP "github.com/ilindan-dev/local-notifier/internal/delivery/http"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/internal/logger"
	"github.com/ilindan-dev/local-notifier/internal/notifiers"
	"github.com/ilindan-dev/local-notifier/internal/screens"
	"github.com/ilindan-dev/local-notifier/internal/service"
	"github.com/ilindan-dev/local-notifier/internal/storage/postgres"
	"github.com/ilindan-dev/local-notifier/internal/storage/rabbitmq"
	"github.com/ilindan-dev/local-notifier/internal/storage/redis"
	"github.com/ilindan-dev/local-notifier/internal/sweeper"
	"github.com/ilindan-dev/local-notifier/internal/tui"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// clientLogFile is where the terminal client logs when no file is configured.
const clientLogFile = "local-notifier.log"

// CommonModule provides the configuration and the root logger.
var CommonModule = fx.Options(
	fx.Provide(
		config.NewConfig,
		logger.NewLogger,
	),
)

// CenterModule provides dependencies that are shared between the API and Worker applications.
var CenterModule = fx.Options(
	CommonModule,
	fx.Provide(
		// Storage Layer - concrete implementations
		postgres.NewPool,
		redis.NewClient,
		rabbitmq.NewConnection,
		redis.NewRequestCache,
		postgres.NewRequestRepository,
		rabbitmq.NewRabbitMQQueue,

		// Storage Layer - the interfaces the service depends on
		newRequestRepository,
		newRequestQueue,
		newAuthorizationStore,
		newDeliveryFeed,

		// Service Layer
		service.NewNotificationService,
	),
	fx.Invoke(registerStorageHooks),
)

// APIModule defines the Fx module for the HTTP API application.
var APIModule = fx.Options(
	CenterModule,
	fx.Provide(
		// API-specific components
		deliveryHTTP.NewHandlers,
		deliveryHTTP.NewServer,
	),
	fx.Invoke(runMigrations),
	fx.Invoke(func(server *deliveryHTTP.Server, lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *zerolog.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Msg("http server failed")
						_ = shutdowner.Shutdown(fx.ExitCode(1))
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
		})
	}),
)

// WorkerModule defines the Fx module for the background worker application.
var WorkerModule = fx.Options(
	CenterModule,
	fx.Provide(
		// Worker-specific components
		newNotifier,
		newPresentationDelegate,
		consumer.New,
		sweeper.New,
	),
	fx.Invoke(func(c *consumer.Consumer, s *sweeper.Sweeper, lc fx.Lifecycle) {
		runCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					defer close(done)
					c.Start(runCtx)
				}()
				return s.Start()
			},
			OnStop: func(ctx context.Context) error {
				cancel()
				sweepErr := s.Stop(ctx)
				select {
				case <-done:
				case <-ctx.Done():
					return ctx.Err()
				}
				return sweepErr
			},
		})
	}),
)

// ClientModule defines the Fx module for the terminal client.
var ClientModule = fx.Options(
	fx.NopLogger,
	CommonModule,
	fx.Decorate(func(cfg *config.Config) *config.Config {
		// The terminal belongs to the UI.
		if cfg.Logger.File == "" {
			cfg.Logger.File = clientLogFile
		}
		return cfg
	}),
	fx.Provide(
		client.NewClient,
		newNotificationCenter,
		screens.NewPendingFetcher,
		screens.NewPendingList,
		newComposerFactory,
	),
	fx.Invoke(runClient),
)

func newRequestRepository(
	cfg *config.Config,
	pgRepo *postgres.RequestRepository,
	cache *redis.RequestCache,
	logger *zerolog.Logger,
) repo.RequestRepository {
	return redis.NewCachedRequestRepository(pgRepo, cache, cfg.Redis.CacheTTL, logger)
}

func newRequestQueue(q *rabbitmq.RabbitMQQueue) repo.RequestQueue {
	return q
}

func newAuthorizationStore(logger *zerolog.Logger, rdb *goredis.Client) repo.AuthorizationStore {
	return redis.NewAuthorizationStore(logger, rdb)
}

func newDeliveryFeed(logger *zerolog.Logger, rdb *goredis.Client) repo.DeliveryFeed {
	return redis.NewDeliveryFeed(logger, rdb)
}

func newNotifier(cfg *config.Config, logger *zerolog.Logger) (notifiers.Notifier, error) {
	return notifiers.NewDispatcher(cfg, logger)
}

func newPresentationDelegate() notifiers.PresentationDelegate {
	return notifiers.NewAlertDelegate()
}

func newNotificationCenter(c *client.Client) screens.NotificationCenter {
	return c
}

// composerFactory opens a fresh creation screen.
type composerFactory func() *screens.Composer

func newComposerFactory(cfg *config.Config, center screens.NotificationCenter, logger *zerolog.Logger) composerFactory {
	bundle := screens.NewBundle(cfg.App.BundleDir)
	return func() *screens.Composer {
		return screens.NewComposer(center, bundle, logger)
	}
}

// registerStorageHooks closes the shared connections when the application stops.
func registerStorageHooks(
	lc fx.Lifecycle,
	pool *pgxpool.Pool,
	rdb *goredis.Client,
	conn *amqp.Connection,
	queue *rabbitmq.RabbitMQQueue,
	logger *zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			var errs []error
			if err := queue.Close(); err != nil {
				errs = append(errs, err)
			}
			if err := conn.Close(); err != nil {
				errs = append(errs, err)
			}
			if err := rdb.Close(); err != nil {
				errs = append(errs, err)
			}
			pool.Close()
			logger.Info().Msg("storage connections closed")
			return errors.Join(errs...)
		},
	})
}

// runMigrations applies the embedded migrations before the API starts,
// when postgres.auto_migrate is set.
func runMigrations(cfg *config.Config, lc fx.Lifecycle, logger *zerolog.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return postgres.Migrate(ctx, cfg.Postgres.MasterDSN, "up", logger)
		},
	})
}

// runClient runs the terminal UI and stops the application when it exits.
func runClient(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	c *client.Client,
	list *screens.PendingList,
	factory composerFactory,
	logger *zerolog.Logger,
) {
	var program *tea.Program
	subCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var deliveries <-chan *model.Request
			events, stop, err := c.SubscribeDeliveries(subCtx)
			if err != nil {
				logger.Warn().Err(err).Msg("live deliveries unavailable")
			} else {
				deliveries = events
				go func() {
					<-subCtx.Done()
					stop()
				}()
			}

			program = tea.NewProgram(tui.New(list, factory, deliveries), tea.WithAltScreen())
			go func() {
				code := 0
				if _, err := program.Run(); err != nil {
					logger.Error().Err(err).Msg("terminal ui failed")
					code = 1
				}
				cancel()
				list.Wait()
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			if program != nil {
				program.Quit()
			}
			return nil
		},
	})
}
