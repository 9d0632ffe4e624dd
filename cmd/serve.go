package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clydetadiwa/folio/internal/api"
	"github.com/clydetadiwa/folio/internal/config"
	"github.com/clydetadiwa/folio/internal/eventbus"
	"github.com/clydetadiwa/folio/internal/logger"
	"github.com/clydetadiwa/folio/internal/mailer"
	"github.com/clydetadiwa/folio/internal/notify"
	"github.com/clydetadiwa/folio/internal/scheduler"
	"github.com/clydetadiwa/folio/internal/server"
	"github.com/clydetadiwa/folio/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the portfolio backend: HTTP API, publish scheduler, and subscriber notifications.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides PORT env var)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}

	log := logger.New(cfg.LogFile, cfg.SlogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, fresh, err := storage.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if fresh {
		log.Info("initialized new database", "path", cfg.DatabasePath)
	}

	posts := storage.NewSQLitePostStore(db)
	projects := storage.NewSQLiteProjectStore(db)
	subscribers := storage.NewSQLiteSubscriberStore(db)
	admins := storage.NewSQLiteAdminStore(db)
	deliveryLog := storage.NewSQLiteDeliveryLogStore(db)

	bus := eventbus.New(2, log)
	defer bus.Close()

	// The process runs without a mail transport when no credentials are
	// configured; publishing still works, notifications are skipped.
	var transport mailer.Transport
	if tc, err := cfg.ResolveTransport(); err == nil {
		transport = mailer.NewTransport(tc)
		log.Info("mail transport configured", "kind", string(tc.Kind), "from", tc.From)

		dispatcher := mailer.NewDispatcher(transport, log,
			mailer.WithBatchTimeout(cfg.DispatchTimeout))

		notifier := notify.New(notify.Config{
			Posts:       posts,
			Projects:    projects,
			Subscribers: subscribers,
			DeliveryLog: deliveryLog,
			Dispatcher:  dispatcher,
			Logger:      log,
			SiteBaseURL: cfg.SiteBaseURL,
			SiteName:    cfg.SiteName,
		})
		notifier.Register(bus)
	} else {
		log.Warn("no mail transport configured, subscriber notifications disabled")
	}

	sched, err := scheduler.New(scheduler.Config{
		Posts:          posts,
		Logger:         log,
		EventPublisher: bus,
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn("stopping scheduler", "error", err)
		}
	}()

	apiSrv := api.New(api.Config{
		Posts:       posts,
		Projects:    projects,
		Subscribers: subscribers,
		Admins:      admins,
		DeliveryLog: deliveryLog,
		Transport:   transport,
		Events:      bus,
		JWTSecret:   cfg.JWTSecret,
		SiteBaseURL: cfg.SiteBaseURL,
		SiteName:    cfg.SiteName,
		Logger:      log,
	})

	srv := server.New(apiSrv, cfg.Port, log)
	log.Info("server starting", "port", cfg.Port)
	return srv.Run(ctx)
}
