package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	agentsrepo "github.com/yungbote/convoroute-backend/internal/data/repos/agents"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// Registry maps agent keys to constructors. Factories are registered at
// startup; lookup is by key with an explicit not-found path, never by
// reflection.
type Registry struct {
	log  *logger.Logger
	defs agentsrepo.DefinitionRepo
	deps Deps

	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry(log *logger.Logger, defs agentsrepo.DefinitionRepo, deps Deps) (*Registry, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if defs == nil {
		return nil, fmt.Errorf("agent definition repo required")
	}
	r := &Registry{
		log:       log.With("service", "AgentRegistry"),
		defs:      defs,
		deps:      deps,
		factories: map[string]Factory{},
	}
	return r, nil
}

func (r *Registry) Register(key string, f Factory) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("agent key required")
	}
	if f == nil {
		return fmt.Errorf("factory required for agent %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("agent %q already registered", key)
	}
	r.factories[key] = f
	return nil
}

func (r *Registry) RegisteredKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// View is the per-tenant registry snapshot, immutable for the lifetime of one
// request. Built at context-resolution time; no live reload mid-request.
type View struct {
	tenantID    string
	handlers    map[string]Handler
	meta        map[string]*domain.AgentDefinition
	fallbackKey string
}

// ForTenant loads the tenant's enabled agent definitions and instantiates the
// handlers that have both a registered factory and their capability
// requirements met. Definitions whose domain is not enabled for the tenant
// are excluded, so a lookup scoped to tenant A can never surface another
// tenant's keys.
func (r *Registry) ForTenant(ctx context.Context, tctx *tenant.Context) (*View, error) {
	if tctx == nil {
		tctx = tenant.System()
	}
	rows, err := r.defs.ListForOrg(dbctx.New(ctx), tctx.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load agent definitions: %w", err)
	}

	v := &View{
		tenantID:    tctx.TenantID,
		handlers:    map[string]Handler{},
		meta:        map[string]*domain.AgentDefinition{},
		fallbackKey: tctx.FallbackAgent(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range rows {
		if def == nil || !def.Enabled {
			continue
		}
		if def.Domain != "" && !tctx.DomainEnabled(def.Domain) {
			continue
		}
		f, ok := r.factories[def.AgentKey]
		if !ok {
			r.log.Warn("agent definition has no registered factory, skipping",
				"agent_key", def.AgentKey, "tenant_id", tctx.TenantID)
			continue
		}
		if !r.capabilitiesMet(def) {
			r.log.Warn("agent capability requirements unmet, skipping",
				"agent_key", def.AgentKey, "tenant_id", tctx.TenantID)
			continue
		}
		v.handlers[def.AgentKey] = f(r.deps)
		v.meta[def.AgentKey] = def
	}

	// The fallback agent must always resolve, even without a DB row.
	if _, ok := v.handlers[v.fallbackKey]; !ok {
		if f, ok := r.factories[v.fallbackKey]; ok {
			v.handlers[v.fallbackKey] = f(r.deps)
		} else if f, ok := r.factories[tenant.DefaultFallbackAgent]; ok {
			v.fallbackKey = tenant.DefaultFallbackAgent
			v.handlers[v.fallbackKey] = f(r.deps)
		} else {
			return nil, fmt.Errorf("no fallback agent registered")
		}
	}

	return v, nil
}

func (r *Registry) capabilitiesMet(def *domain.AgentDefinition) bool {
	if len(def.CapabilityRequirements) == 0 {
		return true
	}
	var caps []string
	if err := json.Unmarshal(def.CapabilityRequirements, &caps); err != nil {
		return false
	}
	for _, c := range caps {
		switch c {
		case CapNeedsLLM:
			if r.deps.LLM == nil {
				return false
			}
		case CapNeedsVectorStore:
			if r.deps.Vector == nil {
				return false
			}
		}
	}
	return true
}

// Resolve returns the handler for key, or ok=false when the key is unknown,
// disabled, or not available to this tenant.
func (v *View) Resolve(key string) (Handler, bool) {
	h, ok := v.handlers[strings.TrimSpace(key)]
	return h, ok
}

func (v *View) Fallback() (Handler, string) {
	return v.handlers[v.fallbackKey], v.fallbackKey
}

func (v *View) TenantID() string { return v.tenantID }

func (v *View) Definitions() []*domain.AgentDefinition {
	out := make([]*domain.AgentDefinition, 0, len(v.meta))
	for _, d := range v.meta {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentKey < out[j].AgentKey })
	return out
}
