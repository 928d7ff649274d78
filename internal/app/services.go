package app

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/convoroute-backend/internal/agents"
	"github.com/yungbote/convoroute-backend/internal/checkpoint"
	"github.com/yungbote/convoroute-backend/internal/classify"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/orchestrator"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

type Services struct {
	CheckpointStore checkpoint.Store
	Classifier      classify.Classifier
	Registry        *agents.Registry
	Resolver        *tenant.Resolver
	Executor        *orchestrator.Executor
	Supervisor      *orchestrator.Supervisor
	Orchestrator    *orchestrator.Orchestrator
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, repos Repos) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	var store checkpoint.Store
	var err error
	switch cfg.CheckpointDriver {
	case "memory":
		store, err = checkpoint.NewMemoryStore(log)
	default:
		store, err = checkpoint.NewGormStore(log, repos.Checkpoints)
	}
	if err != nil {
		return Services{}, fmt.Errorf("init checkpoint store: %w", err)
	}
	s.CheckpointStore = store

	patterns := classify.DefaultPatterns()
	if cfg.PatternsPath != "" {
		patterns, err = classify.LoadPatterns(cfg.PatternsPath)
		if err != nil {
			return Services{}, fmt.Errorf("load classify patterns: %w", err)
		}
	}
	s.Classifier, err = classify.New(log, clients.OpenAI, patterns, classify.ThresholdsFromEnv())
	if err != nil {
		return Services{}, fmt.Errorf("init classifier: %w", err)
	}

	registry, err := agents.NewRegistry(log, repos.AgentDefinitions, agents.Deps{
		Log:    log,
		LLM:    clients.OpenAI,
		Vector: clients.VectorStore,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init agent registry: %w", err)
	}
	if err := agents.RegisterBuiltins(registry); err != nil {
		return Services{}, fmt.Errorf("register builtin agents: %w", err)
	}
	s.Registry = registry

	s.Resolver, err = tenant.NewResolver(log, repos.Organizations, clients.TenantCache, cfg.JWTSecretKey)
	if err != nil {
		return Services{}, fmt.Errorf("init tenant resolver: %w", err)
	}

	s.Supervisor, err = orchestrator.NewSupervisor(log, clients.OpenAI, orchestrator.SupervisorConfigFromEnv())
	if err != nil {
		return Services{}, fmt.Errorf("init supervisor: %w", err)
	}

	s.Executor, err = orchestrator.NewExecutor(log, store, registry, s.Classifier, s.Supervisor)
	if err != nil {
		return Services{}, fmt.Errorf("init executor: %w", err)
	}

	s.Orchestrator, err = orchestrator.New(log, s.Resolver, s.Executor, clients.ThreadLease)
	if err != nil {
		return Services{}, fmt.Errorf("init orchestrator: %w", err)
	}

	return s, nil
}

// seedBuiltinDefinitions inserts global registry rows for the builtin agents
// when they are missing, so a fresh database routes out of the box. Existing
// rows, including disabled ones, are left untouched.
func seedBuiltinDefinitions(ctx context.Context, log *logger.Logger, repos Repos) error {
	existing, err := repos.AgentDefinitions.ListAll(dbctx.New(ctx), nil)
	if err != nil {
		return fmt.Errorf("list agent definitions: %w", err)
	}
	have := map[string]bool{}
	for _, d := range existing {
		have[d.AgentKey] = true
	}

	want := []*domain.AgentDefinition{
		{
			AgentKey:               "fallback",
			DisplayName:            "Fallback",
			Domain:                 "fallback",
			Enabled:                true,
			CapabilityRequirements: datatypes.JSON([]byte(`[]`)),
		},
		{
			AgentKey:               "smalltalk",
			DisplayName:            "Smalltalk",
			Domain:                 "smalltalk",
			Enabled:                true,
			CapabilityRequirements: datatypes.JSON([]byte(`["needs_llm"]`)),
		},
		{
			AgentKey:               "knowledge",
			DisplayName:            "Knowledge",
			Domain:                 "product",
			Enabled:                true,
			CapabilityRequirements: datatypes.JSON([]byte(`["needs_llm","needs_vector_store"]`)),
		},
	}

	var missing []*domain.AgentDefinition
	for _, d := range want {
		if !have[d.AgentKey] {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if _, err := repos.AgentDefinitions.Create(dbctx.New(ctx), missing); err != nil {
		return fmt.Errorf("seed agent definitions: %w", err)
	}
	log.Info("seeded builtin agent definitions", "count", len(missing))
	return nil
}
