package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/convoroute-backend/internal/clients/twilio"
	"github.com/yungbote/convoroute-backend/internal/http/response"
	"github.com/yungbote/convoroute-backend/internal/orchestrator"
	"github.com/yungbote/convoroute-backend/internal/pkg/apierr"
	"github.com/yungbote/convoroute-backend/internal/pkg/ctxutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// WhatsAppHandler receives Twilio webhook form posts and relays the
// orchestrator's answer back out through the gateway. The thread id is the
// sender's number: one WhatsApp conversation per customer per tenant.
type WhatsAppHandler struct {
	log    *logger.Logger
	orch   *orchestrator.Orchestrator
	sender twilio.Client // nil in deployments without outbound WhatsApp
}

func NewWhatsAppHandler(log *logger.Logger, orch *orchestrator.Orchestrator, sender twilio.Client) *WhatsAppHandler {
	return &WhatsAppHandler{
		log:    log.With("handler", "WhatsAppHandler"),
		orch:   orch,
		sender: sender,
	}
}

func (h *WhatsAppHandler) Webhook(c *gin.Context) {
	from := strings.TrimSpace(c.PostForm("From"))    // whatsapp:+5215550000000
	to := strings.TrimSpace(c.PostForm("To"))        // tenant's business number
	body := strings.TrimSpace(c.PostForm("Body"))
	if from == "" || to == "" || body == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_REQUEST", "message": "From, To and Body are required"},
		})
		return
	}

	threadID := strings.TrimPrefix(from, "whatsapp:")
	businessNumber := strings.TrimPrefix(to, "whatsapp:")

	ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
		ThreadID: threadID,
		Channel:  "whatsapp",
	})
	c.Request = c.Request.WithContext(ctx)

	resp, err := h.orch.Handle(ctx, orchestrator.Request{
		WhatsAppNumber: businessNumber,
		ThreadID:       threadID,
		Message:        body,
	})
	if err != nil {
		ae := apierr.From(err)
		// Twilio retries non-2xx deliveries, which is exactly what checkpoint
		// unavailability needs; everything else gets a 200 so the webhook is
		// not retried for a request that cannot succeed.
		if ae.Status == http.StatusServiceUnavailable {
			response.Error(c, err)
			return
		}
		h.log.Warn("whatsapp turn rejected", "code", ae.Code, "error", ae.Error())
		c.Status(http.StatusOK)
		return
	}

	if h.sender != nil {
		if _, serr := h.sender.SendWhatsApp(c.Request.Context(), from, resp.Text); serr != nil {
			h.log.Error("whatsapp outbound send failed", "thread_id", threadID, "error", serr)
			// The checkpoint is durable; Twilio's retry will re-deliver
			// idempotently.
			response.Error(c, serr)
			return
		}
	}
	c.Status(http.StatusOK)
}
