// Package main provides the metagrid server binary serving the HTTP
// API and the real-time WebSocket endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/auth"
	"github.com/metagrid-dev/metagrid/internal/config"
	"github.com/metagrid-dev/metagrid/internal/frontend/handlers"
	"github.com/metagrid-dev/metagrid/internal/frontend/ws"
	"github.com/metagrid-dev/metagrid/internal/game/room"
	"github.com/metagrid-dev/metagrid/internal/observability"
	"github.com/metagrid-dev/metagrid/internal/server"
	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting metagrid server",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("ws_addr", cfg.WS.Addr()),
	)

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	accountRepo := postgres.NewAccountRepository(pool.DB())
	catalogRepo := postgres.NewCatalogRepository(pool.DB())
	spaceRepo := postgres.NewSpaceRepository(pool.DB())

	tokenSvc := auth.NewService(cfg.Auth)

	coordinator := room.NewCoordinator(tokenSvc, spaceRepo, room.NewRegistry(), logger)

	gameHandler := handlers.NewGameHandler(coordinator, cfg.WS.SendBuffer, logger)
	acceptor := ws.NewAcceptor(cfg.WS, gameHandler, logger)

	router := handlers.NewRouter(
		tokenSvc,
		handlers.NewAuthHandler(accountRepo, tokenSvc, logger),
		handlers.NewAdminHandler(catalogRepo, logger),
		handlers.NewSpaceHandler(spaceRepo, logger),
		handlers.NewUserHandler(userStore{accountRepo, catalogRepo}, logger),
	)
	apiServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("http-api", &server.FuncService{
		StartFn: func() error {
			if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		},
	})
	lifecycle.Add("websocket", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("server wired", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("lifecycle error", zap.Error(err))
	}
}

// userStore combines the account and catalog repositories into the
// handlers.UserStore surface.
type userStore struct {
	*postgres.AccountRepository
	*postgres.CatalogRepository
}
