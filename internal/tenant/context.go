package tenant

import (
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/convoroute-backend/internal/domain"
)

// SystemTenantID is the well-known sentinel for non-multi-tenant deployments.
// It resolves to the global agent registry.
const SystemTenantID = "system"

// DefaultFallbackAgent is used when the tenant config does not name one.
const DefaultFallbackAgent = "fallback"

// Context is the resolved tenant scope for one request. It is threaded
// explicitly through every call; there is no package-level current tenant.
type Context struct {
	TenantID string
	// OrgID is nil for the system tenant.
	OrgID  *uuid.UUID
	Org    *domain.Organization
	Config domain.OrgConfig
}

func System() *Context {
	return &Context{TenantID: SystemTenantID}
}

func (c *Context) IsSystem() bool {
	return c == nil || c.OrgID == nil
}

func (c *Context) FallbackAgent() string {
	if c != nil && strings.TrimSpace(c.Config.FallbackAgent) != "" {
		return c.Config.FallbackAgent
	}
	return DefaultFallbackAgent
}

// DomainEnabled reports whether the tenant may route to a domain. An empty
// enabled list means every domain is allowed. The fallback domain is always
// allowed so the system can always respond.
func (c *Context) DomainEnabled(d string) bool {
	if d == "" {
		return false
	}
	if d == "fallback" {
		return true
	}
	if c == nil || len(c.Config.EnabledDomains) == 0 {
		return true
	}
	for _, e := range c.Config.EnabledDomains {
		if strings.EqualFold(e, d) {
			return true
		}
	}
	return false
}
