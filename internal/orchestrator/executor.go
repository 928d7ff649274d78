package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/convoroute-backend/internal/agents"
	"github.com/yungbote/convoroute-backend/internal/checkpoint"
	"github.com/yungbote/convoroute-backend/internal/classify"
	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/pkg/apierr"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// Graph sentinels. Agent keys are the interior nodes; edges out of an agent
// node are chosen by the classification on the first hop and by the
// supervisor afterwards.
const (
	NodeStart = "START"
	NodeEnd   = "END"
)

const checkpointWriteTimeout = 5 * time.Second

// Turn is the outcome of one graph execution.
type Turn struct {
	Response       string
	AgentKey       string
	Domain         string
	Classification convo.Classification
	State          *convo.ConversationState
}

type Executor struct {
	log        *logger.Logger
	store      checkpoint.Store
	registry   *agents.Registry
	classifier classify.Classifier
	supervisor *Supervisor
}

func NewExecutor(log *logger.Logger, store checkpoint.Store, registry *agents.Registry, classifier classify.Classifier, supervisor *Supervisor) (*Executor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("checkpoint store required")
	}
	if registry == nil {
		return nil, fmt.Errorf("agent registry required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier required")
	}
	if supervisor == nil {
		return nil, fmt.Errorf("supervisor required")
	}
	return &Executor{
		log:        log.With("service", "GraphExecutor"),
		store:      store,
		registry:   registry,
		classifier: classifier,
		supervisor: supervisor,
	}, nil
}

// ExecuteTurn runs one conversation turn through the agent graph. Every state
// mutation is checkpointed before the response is surfaced (write-ahead): a
// crash after the final Put is recoverable by re-delivering idempotently.
func (e *Executor) ExecuteTurn(ctx context.Context, tctx *tenant.Context, threadID, message string) (*Turn, error) {
	if tctx == nil {
		tctx = tenant.System()
	}
	log := e.log.With("tenant_id", tctx.TenantID, "thread_id", threadID)

	// START: load or create state.
	st, err := e.store.Get(ctx, tctx.TenantID, threadID)
	if err != nil {
		return nil, apierr.CheckpointUnavailable(fmt.Errorf("checkpoint read: %w", err))
	}
	if st == nil {
		st = convo.NewState(tctx.TenantID, threadID)
	}

	midFlow := st.Status == convo.StatusAwaitingInput && st.CurrentAgent != ""
	st.Status = convo.StatusRunning
	st.RerouteCount = 0
	st.AppendMessage("user", message)

	// Router node: classify unless a multi-step agent holds the thread.
	var cls convo.Classification
	if midFlow {
		cls = convo.Classification{
			Domain:     st.CurrentDomain,
			AgentKey:   st.CurrentAgent,
			Confidence: 1,
			Method:     convo.MethodPattern,
		}
		log.Debug("mid-flow turn, skipping classification", "agent", st.CurrentAgent)
	} else {
		cls = e.classifier.Classify(ctx, classify.Input{
			Text:           message,
			PreviousDomain: st.CurrentDomain,
			Tenant:         tctx,
		})
		log.Info("message classified",
			"domain", cls.Domain,
			"agent", cls.AgentKey,
			"confidence", cls.Confidence,
			"method", cls.Method,
		)
	}

	view, err := e.registry.ForTenant(ctx, tctx)
	if err != nil {
		return nil, fmt.Errorf("build tenant registry view: %w", err)
	}

	turn, err := e.runGraph(ctx, log, tctx, view, st, cls)
	if err != nil {
		return nil, err
	}

	if st.Status.Terminal() {
		// Archive failures are logged, not fatal: the checkpoint row is
		// already durable.
		if aerr := e.store.Archive(detach(ctx), tctx.TenantID, threadID, st); aerr != nil {
			log.Warn("conversation archive failed", "error", aerr)
		}
	}
	return turn, nil
}

// runGraph walks agent nodes until a terminal decision. The walk is an
// explicit bounded loop: at most 1 initial dispatch + MaxReroutes re-routes +
// 1 forced fallback hop.
func (e *Executor) runGraph(ctx context.Context, log *logger.Logger, tctx *tenant.Context, view *agents.View, st *convo.ConversationState, cls convo.Classification) (*Turn, error) {
	agentKey := cls.AgentKey
	domain := cls.Domain
	confidence := cls.Confidence
	maxHops := e.supervisor.MaxReroutes() + 2
	// Routing entries before this index belong to earlier turns and never
	// shrink the re-route candidate pool.
	turnStart := len(st.RoutingHistory)

	var response string
	forcedFallback := false

	for hop := 0; hop < maxHops; hop++ {
		handler, ok := view.Resolve(agentKey)
		if !ok {
			// AGENT_UNRESOLVED: fail closed to the fallback agent.
			log.Warn("agent unresolved, forcing fallback",
				"agent", agentKey, "code", apierr.CodeAgentUnresolved)
			st.RecordRouting(agentKey, "fallback", confidence)
			handler, agentKey = view.Fallback()
			domain = convo.FallbackDomain
			forcedFallback = true
		}

		st.CurrentAgent = agentKey
		st.CurrentDomain = domain

		res, herr := handler.Handle(ctx, tctx, st, st.LastUserMessage())
		if herr != nil {
			// AGENT_EXECUTION_FAILED: the supervisor is never consulted for a
			// failed handler; route straight to fallback.
			log.Error("agent execution failed",
				"agent", agentKey, "code", apierr.CodeAgentExecutionFailed, "error", herr)
			st.RecordRouting(agentKey, "agent_failed", confidence)
			if forcedFallback || agentKey == fallbackKey(view) {
				// The fallback itself failed; degrade to a canned reply.
				st.Status = convo.StatusFailed
				response = "We hit a snag processing your message. Please try again in a moment."
				if err := e.persist(ctx, st); err != nil {
					return nil, err
				}
				return e.finishTurn(st, cls, agentKey, domain, response), nil
			}
			handler, agentKey = view.Fallback()
			domain = convo.FallbackDomain
			forcedFallback = true
			st.CurrentAgent = agentKey
			st.CurrentDomain = domain
			res, herr = handler.Handle(ctx, tctx, st, st.LastUserMessage())
			if herr != nil {
				st.RecordRouting(agentKey, "agent_failed", confidence)
				st.Status = convo.StatusFailed
				response = "We hit a snag processing your message. Please try again in a moment."
				if err := e.persist(ctx, st); err != nil {
					return nil, err
				}
				return e.finishTurn(st, cls, agentKey, domain, response), nil
			}
		}

		response = res.ResponseText
		applyPatch(st, res.Patch)
		st.RecordRouting(agentKey, "dispatch", confidence)

		// Checkpoint after every node, before any decision is surfaced.
		if err := e.persist(ctx, st); err != nil {
			return nil, err
		}

		if forcedFallback {
			// Fallback is terminal by design; no quality gate on it.
			e.seal(st)
			st.RecordRouting(agentKey, "finish", confidence)
			if err := e.persist(ctx, st); err != nil {
				return nil, err
			}
			return e.finishTurn(st, cls, agentKey, domain, response), nil
		}

		if st.Status == convo.StatusAwaitingInput {
			// Multi-step agent keeps the thread; turn ends here.
			st.RecordRouting(agentKey, "finish", confidence)
			if err := e.persist(ctx, st); err != nil {
				return nil, err
			}
			return e.finishTurn(st, cls, agentKey, domain, response), nil
		}

		decision := e.supervisor.Evaluate(ctx, st, cls, agentKey, response, st.RoutingHistory[turnStart:])
		switch decision.Action {
		case ActionFinish:
			e.seal(st)
			st.RecordRouting(agentKey, "finish", decision.Quality)
			if err := e.persist(ctx, st); err != nil {
				return nil, err
			}
			return e.finishTurn(st, cls, agentKey, domain, response), nil

		case ActionReroute:
			st.RerouteCount++
			st.Status = convo.StatusRunning
			st.RecordRouting(decision.NextAgent, "reroute", decision.Quality)
			log.Info("supervisor re-routing",
				"from", agentKey,
				"to", decision.NextAgent,
				"quality", decision.Quality,
				"reroute_count", st.RerouteCount,
			)
			agentKey = decision.NextAgent
			domain = decision.NextDomain

		case ActionFallback:
			// REROUTE_LIMIT_EXCEEDED or no candidate left: designed terminal
			// state, not an error.
			log.Warn("supervisor forcing fallback",
				"from", agentKey,
				"quality", decision.Quality,
				"code", apierr.CodeRerouteLimitExceeded,
			)
			st.Status = convo.StatusRunning
			st.RecordRouting(fallbackKey(view), "fallback", decision.Quality)
			_, agentKey = view.Fallback()
			domain = convo.FallbackDomain
			forcedFallback = true
		}
	}

	// The hop bound is sized so this is unreachable with a working fallback;
	// seal defensively rather than loop.
	e.seal(st)
	if err := e.persist(ctx, st); err != nil {
		return nil, err
	}
	return e.finishTurn(st, cls, agentKey, domain, response), nil
}

func (e *Executor) finishTurn(st *convo.ConversationState, cls convo.Classification, agentKey, domain, response string) *Turn {
	return &Turn{
		Response:       response,
		AgentKey:       agentKey,
		Domain:         domain,
		Classification: cls,
		State:          st,
	}
}

// seal marks the turn complete unless an agent already set a terminal or
// awaiting status.
func (e *Executor) seal(st *convo.ConversationState) {
	if st.Status == convo.StatusRunning {
		st.Status = convo.StatusCompleted
	}
}

// persist writes the checkpoint on a detached context: a client disconnect
// cancels in-flight LLM and vector calls, but completed-step state always
// lands. Failure here is fatal to the turn (CHECKPOINT_WRITE_FAILED).
func (e *Executor) persist(ctx context.Context, st *convo.ConversationState) error {
	pctx, cancel := context.WithTimeout(detach(ctx), checkpointWriteTimeout)
	defer cancel()
	if err := e.store.Put(pctx, st.TenantID, st.ThreadID, st); err != nil {
		return apierr.CheckpointWriteFailed(err)
	}
	return nil
}

// applyPatch folds a handler's requested mutations into the state. Handlers
// never touch the checkpoint directly.
func applyPatch(st *convo.ConversationState, p agents.StatePatch) {
	if p.Status != nil {
		st.Status = *p.Status
	}
	if len(p.Data) > 0 {
		if st.AgentData == nil {
			st.AgentData = map[string]any{}
		}
		for k, v := range p.Data {
			st.AgentData[k] = v
		}
	}
}

func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func fallbackKey(view *agents.View) string {
	_, key := view.Fallback()
	return key
}
