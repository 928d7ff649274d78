package agents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	agentsrepo "github.com/yungbote/convoroute-backend/internal/data/repos/agents"
	"github.com/yungbote/convoroute-backend/internal/data/repos/testutil"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

func seedDefs(t *testing.T, repo agentsrepo.DefinitionRepo, rows ...*domain.AgentDefinition) {
	t.Helper()
	if _, err := repo.Create(dbctx.New(context.Background()), rows); err != nil {
		t.Fatalf("seed definitions: %v", err)
	}
}

func globalDef(key, dom string) *domain.AgentDefinition {
	return &domain.AgentDefinition{AgentKey: key, DisplayName: key, Domain: dom, Enabled: true}
}

func orgDef(key, dom string, orgID uuid.UUID) *domain.AgentDefinition {
	d := globalDef(key, dom)
	d.OrgID = &orgID
	return d
}

func newTestRegistry(t *testing.T, deps Deps, keys ...string) (*Registry, agentsrepo.DefinitionRepo) {
	t.Helper()
	log := testutil.Logger(t)
	repo := agentsrepo.NewDefinitionRepo(testutil.DB(t), log)
	r, err := NewRegistry(log, repo, deps)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	for _, key := range keys {
		key := key
		if err := r.Register(key, func(Deps) Handler { return fallbackAgent{} }); err != nil {
			t.Fatalf("register %s: %v", key, err)
		}
	}
	return r, repo
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r, _ := newTestRegistry(t, Deps{}, "fallback")
	if err := r.Register("fallback", func(Deps) Handler { return fallbackAgent{} }); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestForTenantIsolatesOrgAgents(t *testing.T) {
	r, repo := newTestRegistry(t, Deps{}, "fallback", "acme-special", "globex-special")

	acmeID := uuid.New()
	globexID := uuid.New()
	seedDefs(t, repo,
		globalDef("fallback", "fallback"),
		orgDef("acme-special", "product", acmeID),
		orgDef("globex-special", "product", globexID),
	)

	acme := &tenant.Context{TenantID: "acme", OrgID: &acmeID}
	view, err := r.ForTenant(context.Background(), acme)
	if err != nil {
		t.Fatalf("for tenant: %v", err)
	}

	if _, ok := view.Resolve("acme-special"); !ok {
		t.Fatal("tenant's own agent missing from view")
	}
	if _, ok := view.Resolve("globex-special"); ok {
		t.Fatal("another tenant's agent resolvable")
	}
	if _, ok := view.Resolve("fallback"); !ok {
		t.Fatal("global agent missing from view")
	}
}

func TestForTenantSkipsUnmetCapabilities(t *testing.T) {
	// Deps carry no LLM, so an agent requiring one must be skipped.
	r, repo := newTestRegistry(t, Deps{}, "fallback", "needs-llm")
	needs := globalDef("needs-llm", "product")
	needs.CapabilityRequirements = datatypes.JSON([]byte(`["needs_llm"]`))
	seedDefs(t, repo, globalDef("fallback", "fallback"), needs)

	view, err := r.ForTenant(context.Background(), tenant.System())
	if err != nil {
		t.Fatalf("for tenant: %v", err)
	}
	if _, ok := view.Resolve("needs-llm"); ok {
		t.Fatal("capability-unmet agent resolvable")
	}
}

func TestForTenantSkipsDisabledDomains(t *testing.T) {
	r, repo := newTestRegistry(t, Deps{}, "fallback", "shop")
	seedDefs(t, repo, globalDef("fallback", "fallback"), globalDef("shop", "product"))

	orgID := uuid.New()
	tctx := &tenant.Context{
		TenantID: "acme",
		OrgID:    &orgID,
		Config:   domain.OrgConfig{EnabledDomains: []string{"support"}},
	}
	view, err := r.ForTenant(context.Background(), tctx)
	if err != nil {
		t.Fatalf("for tenant: %v", err)
	}
	if _, ok := view.Resolve("shop"); ok {
		t.Fatal("agent from a disabled domain resolvable")
	}
}

func TestFallbackResolvesWithoutDefinitionRow(t *testing.T) {
	r, _ := newTestRegistry(t, Deps{}, "fallback")

	view, err := r.ForTenant(context.Background(), tenant.System())
	if err != nil {
		t.Fatalf("for tenant: %v", err)
	}
	h, key := view.Fallback()
	if h == nil || key != "fallback" {
		t.Fatalf("fallback not guaranteed: handler=%v key=%q", h, key)
	}
}

func TestTenantFallbackKeyFallsBackToDefault(t *testing.T) {
	// The tenant names a fallback agent that is not registered; the view must
	// still end up with the default fallback rather than none.
	r, _ := newTestRegistry(t, Deps{}, "fallback")

	orgID := uuid.New()
	tctx := &tenant.Context{
		TenantID: "acme",
		OrgID:    &orgID,
		Config:   domain.OrgConfig{FallbackAgent: "concierge"},
	}
	view, err := r.ForTenant(context.Background(), tctx)
	if err != nil {
		t.Fatalf("for tenant: %v", err)
	}
	h, key := view.Fallback()
	if h == nil || key != tenant.DefaultFallbackAgent {
		t.Fatalf("expected default fallback, got key=%q", key)
	}
}
