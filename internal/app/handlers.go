package app

import (
	"gorm.io/gorm"

	httpx "github.com/yungbote/convoroute-backend/internal/http"
	httpH "github.com/yungbote/convoroute-backend/internal/http/handlers"
	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, clients Clients, repos Repos, services Services) httpx.RouterConfig {
	log.Info("Wiring handlers...")
	return httpx.RouterConfig{
		Log:             log,
		MessageHandler:  httpH.NewMessageHandler(log, services.Orchestrator),
		WhatsAppHandler: httpH.NewWhatsAppHandler(log, services.Orchestrator, clients.Twilio),
		AdminHandler: httpH.NewAdminHandler(
			log,
			services.Resolver,
			repos.AgentDefinitions,
			services.CheckpointStore,
			services.Registry,
		),
		HealthHandler: httpH.NewHealthHandler(log, db, clients.Redis, cfg.CheckpointDriver),
		ServiceName:   cfg.ServiceName,
		TracingOn:     envutil.Bool("OTEL_ENABLED", false),
	}
}
