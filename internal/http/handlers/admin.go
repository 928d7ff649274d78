package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/convoroute-backend/internal/checkpoint"
	agentrepo "github.com/yungbote/convoroute-backend/internal/data/repos/agents"
	"github.com/yungbote/convoroute-backend/internal/http/response"
	"github.com/yungbote/convoroute-backend/internal/pkg/apierr"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// AdminHandler exposes tenant-scoped read endpoints for debugging and support
// tooling. Every read resolves the caller's tenant first; there is no
// cross-tenant listing.
type AdminHandler struct {
	log      *logger.Logger
	resolver *tenant.Resolver
	defs     agentrepo.DefinitionRepo
	store    checkpoint.Store
	registry registeredKeys
}

// registeredKeys is the slice of the agent registry the admin surface needs.
type registeredKeys interface {
	RegisteredKeys() []string
}

func NewAdminHandler(log *logger.Logger, resolver *tenant.Resolver, defs agentrepo.DefinitionRepo, store checkpoint.Store, registry registeredKeys) *AdminHandler {
	return &AdminHandler{
		log:      log.With("handler", "AdminHandler"),
		resolver: resolver,
		defs:     defs,
		store:    store,
		registry: registry,
	}
}

func (h *AdminHandler) resolveTenant(c *gin.Context) (*tenant.Context, bool) {
	tctx, err := h.resolver.Resolve(c.Request.Context(), tenant.Request{
		Token:        bearerToken(c),
		OrgKeyHeader: c.GetHeader("X-Org-Id"),
	})
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return tctx, true
}

// ListAgents returns the agent definitions visible to the caller's tenant,
// annotated with whether a handler is actually registered for the key.
func (h *AdminHandler) ListAgents(c *gin.Context) {
	tctx, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	rows, err := h.defs.ListForOrg(dbctx.New(c.Request.Context()), tctx.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}

	registered := map[string]bool{}
	if h.registry != nil {
		for _, k := range h.registry.RegisteredKeys() {
			registered[k] = true
		}
	}

	type agentView struct {
		AgentKey   string `json:"agent_key"`
		Domain     string `json:"domain"`
		Enabled    bool   `json:"enabled"`
		Registered bool   `json:"registered"`
		Global     bool   `json:"global"`
	}
	out := make([]agentView, 0, len(rows))
	for _, d := range rows {
		out = append(out, agentView{
			AgentKey:   d.AgentKey,
			Domain:     d.Domain,
			Enabled:    d.Enabled,
			Registered: registered[d.AgentKey],
			Global:     d.OrgID == nil,
		})
	}
	response.JSON(c, http.StatusOK, gin.H{"tenant_id": tctx.TenantID, "agents": out})
}

// GetCheckpoint returns the stored conversation state for one thread.
func (h *AdminHandler) GetCheckpoint(c *gin.Context) {
	tctx, ok := h.resolveTenant(c)
	if !ok {
		return
	}
	threadID := strings.TrimSpace(c.Param("threadID"))
	if threadID == "" {
		response.Error(c, apierr.InvalidRequest(fmt.Errorf("threadID required")))
		return
	}

	st, err := h.store.Get(c.Request.Context(), tctx.TenantID, threadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "NOT_FOUND", "message": "no checkpoint for thread"},
		})
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"tenant_id": tctx.TenantID, "thread_id": threadID, "state": st})
}
