package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/renewalkit/migrations"
	"github.com/dmitrymomot/renewalkit/pkg/adminlist"
	"github.com/dmitrymomot/renewalkit/pkg/config"
	"github.com/dmitrymomot/renewalkit/pkg/email"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/httpserver"
	"github.com/dmitrymomot/renewalkit/pkg/ingress"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/pg"
	"github.com/dmitrymomot/renewalkit/pkg/queue"
	"github.com/dmitrymomot/renewalkit/pkg/redis"
	"github.com/dmitrymomot/renewalkit/pkg/renewal"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
	"github.com/dmitrymomot/renewalkit/pkg/webhook"
)

type appConfig struct {
	SignalSecret string `env:"SIGNAL_SECRET,required"`
}

// taskStorage is what the queue producer, worker and scheduler share.
type taskStorage interface {
	queue.ActionRepository
	queue.WorkerRepository
	queue.SchedulerRepository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg)
	slog.SetDefault(log)

	if err := run(ctx, log); err != nil {
		log.Error("renewald stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("renewald stopped")
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		appCfg   appConfig
		extCfg   renewal.Config
		queueCfg queue.Config
		mailCfg  email.Config
		pgCfg    pg.Config
		redisCfg redis.Config
		httpCfg  httpserver.Config
	)
	if err := errors.Join(
		config.Load(&appCfg),
		config.Load(&extCfg),
		config.Load(&queueCfg),
		config.Load(&mailCfg),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&httpCfg),
	); err != nil {
		return err
	}

	d := hooks.New(hooks.WithLogger(log.With(logger.Component("hooks"))))
	var checks []httpserver.HealthCheck

	store, closeStore, err := openStore(ctx, log, pgCfg, &checks)
	if err != nil {
		return err
	}
	defer closeStore()
	subs := subscription.NewService(store,
		subscription.WithEmitter(d),
		subscription.WithLogger(log.With(logger.Component("subscriptions"))))

	tasks, closeTasks, err := openTaskStorage(ctx, log, redisCfg, queueCfg, &checks)
	if err != nil {
		return err
	}
	defer closeTasks()

	actions, err := queue.NewActions(tasks,
		queue.WithQueue(queueCfg.Name),
		queue.WithMaxRetries(queueCfg.MaxRetries),
		queue.WithActionsLogger(log.With(logger.Component("queue"))))
	if err != nil {
		return err
	}

	sender, err := openSender(log, mailCfg)
	if err != nil {
		return err
	}
	extLog := log.With(logger.Component("renewal"))
	sender = email.WithContentFilter(sender, renewal.MailContentFilter(d, renewal.WithLogger(extLog)))

	msgs, err := renewal.LoadMessages(extCfg.MessagesFile)
	if err != nil {
		return err
	}

	base := renewal.NewStandardScheduler(actions, extCfg, renewal.WithLogger(extLog))
	renewal.NewCustomerMailer(subs, sender, msgs, extCfg, renewal.WithLogger(extLog)).Register(d)

	worker, err := queue.NewWorker(tasks,
		queue.WithQueues(queueCfg.Name),
		queue.WithPullInterval(queueCfg.PollInterval),
		queue.WithLockTimeout(queueCfg.LockTimeout),
		queue.WithRetryBackoff(queueCfg.RetryBackoff),
		queue.WithMaxConcurrentTasks(queueCfg.MaxConcurrentTasks),
		queue.WithWorkerLogger(log.With(logger.Component("worker"))))
	if err != nil {
		return err
	}
	scheduler, err := queue.NewScheduler(tasks,
		queue.WithCheckInterval(queueCfg.CheckInterval),
		queue.WithSchedulerLogger(log.With(logger.Component("scheduler"))))
	if err != nil {
		return err
	}

	ext, err := renewal.Install(d, renewal.Deps{
		Subscriptions: subs,
		Queue:         actions,
		Scheduler:     base,
		Mailer:        sender,
		Messages:      msgs,
	}, extCfg, renewal.WithLogger(extLog))
	if err != nil {
		// The admin screen still serves the inactive notice.
		log.Error("renewal extension inactive", logger.Error(err))
	} else {
		if err := worker.RegisterHandler(ext.TaskHandlers()...); err != nil {
			return err
		}
		if err := ext.RegisterDailySweep(scheduler, queue.WithTaskQueue(queueCfg.Name)); err != nil {
			return err
		}
	}

	screen := adminlist.NewScreen(subs, d,
		adminlist.WithLogger(log.With(logger.Component("admin"))),
		adminlist.WithDateFormat(extCfg.DateFormat))
	signals := ingress.NewHandler(subs, d, ingress.WithLogger(log.With(logger.Component("ingress"))))

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler(log, checks...))
	r.With(webhook.Verify(appCfg.SignalSecret, webhook.WithErrorHook(func(r *http.Request, err error) {
		log.WarnContext(r.Context(), "rejected signal delivery", logger.Error(err))
	}))).Mount("/signals", signals.Routes())
	r.Mount("/admin/subscriptions", screen.Routes())

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log.With(logger.Component("http"))))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	if ext != nil {
		g.Go(func() error { return scheduler.Start(ctx) })
	}
	g.Go(func() error { return srv.Run(ctx, r) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, log *slog.Logger, cfg pg.Config, checks *[]httpserver.HealthCheck) (subscription.Store, func(), error) {
	if !cfg.Enabled() {
		log.Warn("PG_CONN_URL not set, subscriptions are kept in memory")
		return subscription.NewMemoryStore(), func() {}, nil
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
		pool.Close()
		return nil, nil, err
	}
	*checks = append(*checks, httpserver.HealthCheck{Name: "postgres", Check: pg.Healthcheck(pool)})
	return subscription.NewPGStore(pool), pool.Close, nil
}

func openTaskStorage(ctx context.Context, log *slog.Logger, cfg redis.Config, qcfg queue.Config, checks *[]httpserver.HealthCheck) (taskStorage, func(), error) {
	if !cfg.Enabled() {
		log.Warn("REDIS_URL not set, scheduled actions are kept in memory")
		storage := queue.NewMemoryStorage()
		return storage, func() { _ = storage.Close() }, nil
	}

	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	storage, err := queue.NewRedisStorage(client, qcfg.RedisKeyPrefix)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	*checks = append(*checks, httpserver.HealthCheck{Name: "redis", Check: redis.Healthcheck(client)})
	return storage, func() { _ = client.Close() }, nil
}

func openSender(log *slog.Logger, cfg email.Config) (email.EmailSender, error) {
	if cfg.PostmarkEnabled() {
		return email.NewPostmarkClient(cfg)
	}
	log.Warn("Postmark tokens not set, emails are written to disk", slog.String("dir", cfg.DevDir))
	return email.NewDevSender(cfg.DevDir), nil
}
