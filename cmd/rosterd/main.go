// Command rosterd runs the lottery/roster HTTP service: the Event Registry,
// Lottery Engine, Cascade Manager, and Notification Broadcaster, backed by
// either an in-memory store (local development) or Postgres.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/internal/app/rosterapp"
	"github.com/R3E-Network/service_layer/internal/app/rosterhttp"
	"github.com/R3E-Network/service_layer/internal/app/services/notify"
	"github.com/R3E-Network/service_layer/internal/app/services/registry"
	"github.com/R3E-Network/service_layer/internal/app/storage"
	"github.com/R3E-Network/service_layer/internal/app/storage/drawlock"
	"github.com/R3E-Network/service_layer/internal/app/storage/memory"
	"github.com/R3E-Network/service_layer/internal/app/storage/postgres"
	"github.com/R3E-Network/service_layer/internal/platform/database"
	"github.com/R3E-Network/service_layer/internal/platform/migrations"
	"github.com/R3E-Network/service_layer/pkg/config"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (defaults to config or :8080)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides config/env; in-memory storage when empty)")
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup (ignored for in-memory)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log := logging.New("rosterd", cfg.Logging.Level, cfg.Logging.Format)

	rootCtx := context.Background()

	dsnVal := strings.TrimSpace(*dsn)
	if dsnVal == "" {
		dsnVal = strings.TrimSpace(cfg.Database.DSN)
	}

	var store storage.Store
	var db *sql.DB

	if dsnVal != "" {
		conn, err := database.Open(rootCtx, dsnVal)
		if err != nil {
			log.WithError(err).Fatal("connect to postgres")
		}
		configurePool(conn, cfg)
		if *runMigrations {
			if err := migrations.Apply(rootCtx, conn); err != nil {
				log.WithError(err).Fatal("apply migrations")
			}
		}
		store = postgres.New(conn)
		db = conn
	} else {
		log.Logger.Warn("no database DSN configured; using in-memory storage (not for production)")
		store = memory.New()
	}
	if db != nil {
		defer db.Close()
	}

	if strings.EqualFold(cfg.Lottery.DrawLockBackend, "redis") {
		redisAddr := strings.TrimSpace(cfg.Lottery.RedisAddr)
		if redisAddr == "" {
			log.Logger.Fatal("LOTTERY_DRAW_LOCK_BACKEND=redis requires LOTTERY_REDIS_ADDR")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		store = rosterapp.WithRedisLocker(store, drawlock.New(redisClient))
		log.Infof("using redis draw lock at %s", redisAddr)
	}

	var qr *registry.QRCodec
	if secret := strings.TrimSpace(cfg.Security.QRRootSecret); secret != "" {
		codec, err := registry.NewQRCodec([]byte(secret))
		if err != nil {
			log.WithError(err).Fatal("configure QR codec")
		}
		qr = codec
	} else {
		log.Logger.Warn("QR_ROOT_SECRET not set; QR payloads will be unsigned")
	}

	var sender notify.Sender
	if webhookURL := strings.TrimSpace(cfg.Notify.WebhookURL); webhookURL != "" {
		var limiter *rate.Limiter
		if cfg.Notify.WebhookRatePerSec > 0 {
			burst := cfg.Notify.WebhookBurst
			if burst <= 0 {
				burst = int(cfg.Notify.WebhookRatePerSec)
			}
			limiter = rate.NewLimiter(rate.Limit(cfg.Notify.WebhookRatePerSec), burst)
		}
		sender = notify.NewWebhookSender(webhookURL, limiter)
		log.Infof("dispatching notifications to webhook %s", webhookURL)
	} else {
		log.Logger.Warn("NOTIFY_WEBHOOK_URL not set; notifications are logged only")
		sender = notify.NewLogSender(log)
	}

	var m *metrics.Metrics
	if metrics.Enabled() {
		m = metrics.Init("rosterd")
	}

	app, err := rosterapp.New(rosterapp.Deps{
		Store:           store,
		QR:              qr,
		Sender:          sender,
		Log:             log,
		Metrics:         m,
		ResponseWindow:  cfg.Lottery.ResponseWindow,
		SweeperEnabled:  cfg.Lottery.SweeperEnabled,
		SweeperCron:     cfg.Lottery.SweeperCron,
		SweeperBatchCap: cfg.Lottery.SweeperBatchCap,
	})
	if err != nil {
		log.WithError(err).Fatal("initialise roster application")
	}

	listenAddr := determineAddr(*addr, cfg)
	httpService := rosterhttp.NewService(app, listenAddr, log, m)
	if err := app.Attach(httpService); err != nil {
		log.WithError(err).Fatal("attach http service")
	}

	if err := app.Start(rootCtx); err != nil {
		log.WithError(err).Fatal("start roster application")
	}
	log.Infof("roster service listening on %s", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.WithError(err).Fatal("shutdown")
	}
}

func determineAddr(flagAddr string, cfg *config.Config) string {
	if addr := strings.TrimSpace(flagAddr); addr != "" {
		return addr
	}
	host := strings.TrimSpace(cfg.Server.Host)
	port := cfg.Server.Port
	if port != 0 {
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, port)
	}
	return ":8080"
}

func configurePool(db *sql.DB, cfg *config.Config) {
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	}
}
