package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/convoroute-backend/internal/data/db"
	httpx "github.com/yungbote/convoroute-backend/internal/http"
	"github.com/yungbote/convoroute-backend/internal/observability"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	server       *httpx.Server
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	dbsvc, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbsvc.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbsvc.DB()

	clientset, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	if err := seedBuiltinDefinitions(context.Background(), log, reposet); err != nil {
		clientset.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(log, cfg, clientset, reposet)
	if err != nil {
		clientset.Close()
		log.Sync()
		return nil, err
	}

	routerCfg := wireHandlers(log, cfg, theDB, clientset, reposet, serviceset)
	server := httpx.NewServer(log, routerCfg, cfg.HTTPAddr)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clientset,
		Repos:        reposet,
		Services:     serviceset,
		server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.server.Run()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
