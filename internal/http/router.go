package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/convoroute-backend/internal/http/handlers"
	httpMW "github.com/yungbote/convoroute-backend/internal/http/middleware"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	MessageHandler  *httpH.MessageHandler
	WhatsAppHandler *httpH.WhatsAppHandler
	AdminHandler    *httpH.AdminHandler
	HealthHandler   *httpH.HealthHandler

	ServiceName string
	TracingOn   bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingOn {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	api := r.Group("/api")
	{
		// Conversation
		if cfg.MessageHandler != nil {
			api.POST("/messages", cfg.MessageHandler.PostMessage)
		}

		// Channel webhooks
		if cfg.WhatsAppHandler != nil {
			api.POST("/webhooks/whatsapp", cfg.WhatsAppHandler.Webhook)
		}

		// Admin (tenant-scoped reads)
		if cfg.AdminHandler != nil {
			api.GET("/admin/agents", cfg.AdminHandler.ListAgents)
			api.GET("/admin/threads/:threadID/checkpoint", cfg.AdminHandler.GetCheckpoint)
		}
	}

	return r
}
