package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/convoroute-backend/internal/http/response"
	"github.com/yungbote/convoroute-backend/internal/orchestrator"
	"github.com/yungbote/convoroute-backend/internal/pkg/ctxutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// MessageHandler is the chat-API entry: POST /api/messages.
type MessageHandler struct {
	log  *logger.Logger
	orch *orchestrator.Orchestrator
}

func NewMessageHandler(log *logger.Logger, orch *orchestrator.Orchestrator) *MessageHandler {
	return &MessageHandler{log: log.With("handler", "MessageHandler"), orch: orch}
}

type postMessageBody struct {
	ThreadID string `json:"thread_id" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

func (h *MessageHandler) PostMessage(c *gin.Context) {
	var body postMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_REQUEST", "message": err.Error()},
		})
		return
	}

	ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
		ThreadID: body.ThreadID,
		Channel:  "api",
	})
	c.Request = c.Request.WithContext(ctx)

	resp, err := h.orch.Handle(ctx, orchestrator.Request{
		TenantToken:  bearerToken(c),
		OrgKeyHeader: strings.TrimSpace(c.GetHeader("X-Org-Id")),
		ThreadID:     body.ThreadID,
		Message:      body.Message,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
