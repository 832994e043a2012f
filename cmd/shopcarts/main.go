package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/shopcarts/internal/config"
	"github.com/Skotchmaster/shopcarts/internal/httpserver"
	commonmw "github.com/Skotchmaster/shopcarts/internal/middleware"
	"github.com/Skotchmaster/shopcarts/internal/mykafka"
	"github.com/Skotchmaster/shopcarts/internal/repo"
	"github.com/Skotchmaster/shopcarts/internal/service"
	pkgdb "github.com/Skotchmaster/shopcarts/pkg/db"
	"github.com/Skotchmaster/shopcarts/pkg/logging"
)

func main() {
	config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		logger.Error("db_init_error", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	gormRepo := &repo.GormRepo{DB: db}
	err = gormRepo.Migrate(initCtx)
	cancel()
	if err != nil {
		logger.Error("db_migrate_error", "error", err)
		os.Exit(1)
	}

	cartService := &service.CartService{Repo: gormRepo}

	var prod *mykafka.Producer
	if cfg.EventsEnabled() {
		prod = mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		cartService.Events = prod
		logger.Info("cart events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.AuthEnabled() {
		logger.Info("bearer auth enabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(commonmw.Common(logger)...)

	httpserver.Register(e, &httpserver.Deps{
		CartHandler: &httpserver.ShopCartHTTP{Svc: cartService},
		ServiceName: cfg.ServiceName,
		Ready:       gormRepo.Ping,
		JWTSecret:   cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("starting shopcarts service", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}

	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
