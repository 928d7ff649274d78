package agents

import (
	"context"

	"github.com/yungbote/convoroute-backend/internal/clients/openai"
	"github.com/yungbote/convoroute-backend/internal/clients/pinecone"
	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// StatePatch is the set of state mutations a handler may request. The
// executor applies it; handlers never write the checkpoint themselves.
type StatePatch struct {
	// Status, when set, overrides the turn's resulting status (e.g. a
	// multi-step agent sets AWAITING_INPUT to keep the flow pinned to
	// itself next turn).
	Status *convo.Status
	// Data is merged into ConversationState.AgentData.
	Data map[string]any
}

type Result struct {
	ResponseText string
	Patch        StatePatch
}

// Handler produces a response for messages routed into its domain.
type Handler interface {
	Key() string
	Handle(ctx context.Context, tctx *tenant.Context, st *convo.ConversationState, message string) (*Result, error)
}

// Deps is what the factory hands to agent constructors. Nil members mean the
// capability is not available in this deployment.
type Deps struct {
	Log    *logger.Logger
	LLM    openai.Client
	Vector pinecone.VectorStore
}

// Factory builds a handler instance. Instances are cheap per-request values;
// anything expensive lives in Deps.
type Factory func(deps Deps) Handler

// Capability requirement strings understood by the registry.
const (
	CapNeedsLLM         = "needs_llm"
	CapNeedsVectorStore = "needs_vector_store"
)
