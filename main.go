package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/config"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/auth"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/handler"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/messaging"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/metrics"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config/config.json", "path to a JSON or YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoSchema {
		if err := repository.EnsureSchema(ctx, db); err != nil {
			return err
		}
		logger.Info("schema ensured")
	}

	store := repository.NewStore(db)
	m := metrics.New()
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiration())

	users := service.NewUserService(store, tokens, m, logger)
	departments := service.NewDepartmentService(store, logger)
	requests := service.NewRequestService(store, cfg.Requests.Strict(), m, logger)
	officers := service.NewOfficerService(store, logger)
	citizens := service.NewCitizenService(store, logger)
	admins := service.NewAdminService(store, logger)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterDeps{
		Users:       handler.NewUserHandler(users),
		Departments: handler.NewDepartmentHandler(departments),
		Requests:    handler.NewRequestHandler(requests, users),
		Profiles:    handler.NewProfileHandler(officers, citizens, admins),
		Meta:        handler.NewMetaHandler(store),
		Tokens:      tokens,
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
	}

	var worker *messaging.OutboxWorker
	if cfg.RabbitMQ.Enabled {
		rmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.AMQPURL(), logger)
		if err != nil {
			return err
		}
		defer rmq.Close()
		worker = messaging.NewOutboxWorker(store, rmq, m, cfg.Outbox.Interval(), cfg.Outbox.BatchSize, logger)
	} else {
		logger.Warn("rabbitmq disabled, outbox messages will accumulate")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	return g.Wait()
}

// openDatabase connects to Postgres, retrying the first ping while the
// database is still starting.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	err = retry.Do(
		func() error { return db.PingContext(ctx) },
		retry.Context(ctx),
		retry.Attempts(10),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready", slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to database", slog.String("host", cfg.Host), slog.String("dbname", cfg.DBName))
	return db, nil
}
