package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apiMiddleware "github.com/phrazzld/pantognostis-api/internal/api/middleware"
	"github.com/phrazzld/pantognostis-api/internal/config"
	"github.com/phrazzld/pantognostis-api/internal/events"
	"github.com/phrazzld/pantognostis-api/internal/notify"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/platform/memory"
	"github.com/phrazzld/pantognostis-api/internal/platform/postgres"
	"github.com/phrazzld/pantognostis-api/internal/platform/redis"
	"github.com/phrazzld/pantognostis-api/internal/platform/sendgrid"
	"github.com/phrazzld/pantognostis-api/internal/platform/stripe"
	"github.com/phrazzld/pantognostis-api/internal/realtime"
	"github.com/phrazzld/pantognostis-api/internal/scheduler"
	"github.com/phrazzld/pantognostis-api/internal/service/account"
	"github.com/phrazzld/pantognostis-api/internal/service/auth"
	"github.com/phrazzld/pantognostis-api/internal/service/catalog"
	"github.com/phrazzld/pantognostis-api/internal/service/enrollment"
	"github.com/phrazzld/pantognostis-api/internal/service/notification"
	"github.com/phrazzld/pantognostis-api/internal/service/review"
	"github.com/phrazzld/pantognostis-api/internal/service/sales"
	"github.com/phrazzld/pantognostis-api/internal/service/webinar"
	"github.com/phrazzld/pantognostis-api/internal/store"
	"github.com/phrazzld/pantognostis-api/internal/task"
)

const (
	// webinarReminderJob names the cron job that e-mails webinar watchers.
	webinarReminderJob = "webinar_reminders"
	emailTaskTimeout   = 30 * time.Second
)

// application holds the shared dependencies so they can be cleaned up
// together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	uow        store.UnitOfWork
	redis      *goredis.Client
	limiter    apiMiddleware.Limiter
	codes      auth.CodeStore
	mailer     notify.Mailer
	gateway    payment.Gateway
	location   *time.Location
	jwt        auth.JWTService
	hub        *realtime.Hub
	emitter    *events.InMemoryEventEmitter
	taskRunner *task.TaskRunner
	scheduler  *scheduler.Scheduler

	authService   *auth.Service
	catalog       *catalog.Service
	reviews       *review.Service
	enrollments   *enrollment.Service
	sales         *sales.Aggregator
	notifications *notification.Service
	webinars      *webinar.Service
	accounts      *account.Service
}

// newApplication wires every service. The database connection must already
// be established; Redis and SendGrid are optional. On failure everything
// opened so far, the database included, is closed again.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (_ *application, err error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		uow:    postgres.NewUnitOfWork(db, logger),
		hub:    realtime.NewHub(logger),
	}
	defer func() {
		if err != nil {
			app.cleanup(ctx)
		}
	}()

	app.jwt, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.location, err = time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reporting timezone %q: %w", cfg.Reporting.Timezone, err)
	}

	if err = app.setupRedis(ctx); err != nil {
		return nil, err
	}
	if err = app.setupMailer(); err != nil {
		return nil, err
	}

	app.gateway, err = stripe.NewClient(cfg.Payment, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
		TaskTimeout: emailTaskTimeout,
	}, logger)
	if err = app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	app.setupServices()

	app.scheduler = scheduler.New(app.location, logger)
	err = app.scheduler.Add(webinarReminderJob, cfg.Scheduler.WebinarReminderSpec, app.webinars.SendReminders)
	if err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

// setupRedis connects to Redis when an address is configured. Without it,
// one-time codes stay in process memory and rate limiting is off.
func (app *application) setupRedis(ctx context.Context) error {
	if app.config.Redis.Addr == "" {
		app.logger.Warn("redis not configured: rate limiting disabled, codes kept in memory")
		app.codes = memory.NewCodeStore()
		return nil
	}
	client, err := redis.NewClient(ctx, app.config.Redis, app.logger)
	if err != nil {
		return err
	}
	app.redis = client
	app.codes = redis.NewCodeStore(client, app.logger)
	app.limiter = redis.NewRateLimiter(client, "rate_limit", app.logger)
	return nil
}

func (app *application) setupMailer() error {
	if app.config.Email.SendGridAPIKey == "" {
		app.logger.Warn("sendgrid not configured: e-mail is written to the log")
		app.mailer = notify.NewLogMailer(app.logger)
		return nil
	}
	mailer, err := sendgrid.NewMailer(app.config.Email, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = mailer
	return nil
}

func (app *application) setupServices() {
	cfg, logger := app.config, app.logger
	mail := notify.NewDispatcher(app.taskRunner, app.mailer, logger)

	app.notifications = notification.NewService(app.uow, app.hub, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.Subscribe(events.EnrollmentConfirmed, task.NewTaskFactoryEventHandler(
		events.EnrollmentConfirmed,
		notify.EnrollmentEmailFactory(app.mailer),
		app.taskRunner,
		logger,
	))
	app.emitter.Subscribe(events.EnrollmentConfirmed, app.notifications.EnrollmentHandler())

	app.authService = auth.NewService(
		app.uow,
		app.jwt,
		auth.NewBcryptHasher(cfg.Auth.BCryptCost),
		app.codes,
		mail,
		app.notifications,
		time.Duration(cfg.Auth.CodeTTLMinutes)*time.Minute,
		logger,
	)
	app.catalog = catalog.NewService(app.uow, app.notifications, logger)
	app.reviews = review.NewService(app.uow, app.notifications, logger)
	app.enrollments = enrollment.NewService(app.uow, app.gateway, app.emitter, cfg.Payment.Currency, logger)
	app.accounts = account.NewService(app.uow, mail, cfg.Email.SupportInbox(), logger)
	app.sales = sales.NewAggregator(app.uow, app.location, logger)
	app.webinars = webinar.NewService(app.uow, mail, app.notifications,
		time.Duration(cfg.Scheduler.ReminderWindowHours)*time.Hour, logger)
}

// Run serves HTTP and runs the scheduler until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	app.scheduler.Start()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and closes connections. ctx bounds how long
// running jobs and queued e-mail may take to finish.
func (app *application) cleanup(ctx context.Context) {
	if app.scheduler != nil {
		if err := app.scheduler.Stop(ctx); err != nil {
			app.logger.Error("scheduler did not stop cleanly", slog.String("error", err.Error()))
		}
	}
	if app.taskRunner != nil {
		if err := app.taskRunner.Stop(ctx); err != nil {
			app.logger.Error("task runner did not drain", slog.String("error", err.Error()))
		}
	}
	if app.hub != nil {
		app.hub.Close()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
