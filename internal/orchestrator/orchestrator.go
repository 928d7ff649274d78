package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/yungbote/convoroute-backend/internal/clients/redis"
	"github.com/yungbote/convoroute-backend/internal/pkg/apierr"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// Request is one inbound conversational message plus the material needed to
// resolve its tenant.
type Request struct {
	TenantToken    string
	OrgKeyHeader   string
	WhatsAppNumber string

	ThreadID string
	Message  string
}

type Response struct {
	ThreadID   string  `json:"thread_id"`
	TenantID   string  `json:"tenant_id"`
	Text       string  `json:"text"`
	AgentKey   string  `json:"agent_key"`
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Status     string  `json:"status"`
}

// Orchestrator is the single externally-visible entry point: resolve tenant,
// serialize the thread, run the graph, translate failures. It is the only
// component that crosses the presentation boundary.
type Orchestrator struct {
	log      *logger.Logger
	resolver *tenant.Resolver
	executor *Executor
	lease    redisclient.ThreadLease
}

func New(log *logger.Logger, resolver *tenant.Resolver, executor *Executor, lease redisclient.ThreadLease) (*Orchestrator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("tenant resolver required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor required")
	}
	if lease == nil {
		return nil, fmt.Errorf("thread lease required")
	}
	return &Orchestrator{
		log:      log.With("service", "Orchestrator"),
		resolver: resolver,
		executor: executor,
		lease:    lease,
	}, nil
}

func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	req.ThreadID = strings.TrimSpace(req.ThreadID)
	req.Message = strings.TrimSpace(req.Message)
	if req.ThreadID == "" {
		return nil, apierr.InvalidRequest(fmt.Errorf("thread_id required"))
	}
	if req.Message == "" {
		return nil, apierr.InvalidRequest(fmt.Errorf("message required"))
	}

	tctx, err := o.resolver.Resolve(ctx, tenant.Request{
		Token:          req.TenantToken,
		OrgKeyHeader:   req.OrgKeyHeader,
		WhatsAppNumber: req.WhatsAppNumber,
	})
	if err != nil {
		return nil, err
	}

	// Single-writer-per-thread: a second message for this thread waits for
	// the first turn's checkpoint write. The lease spans one turn only.
	start := time.Now()
	release, err := o.lease.Acquire(ctx, tctx.TenantID, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("acquire thread lease: %w", err)
	}
	defer release()
	if wait := time.Since(start); wait > 250*time.Millisecond {
		o.log.Debug("thread lease contended", "thread_id", req.ThreadID, "wait", wait.String())
	}

	turn, err := o.executor.ExecuteTurn(ctx, tctx, req.ThreadID, req.Message)
	if err != nil {
		return nil, err
	}

	return &Response{
		ThreadID:   req.ThreadID,
		TenantID:   tctx.TenantID,
		Text:       turn.Response,
		AgentKey:   turn.AgentKey,
		Domain:     turn.Domain,
		Confidence: turn.Classification.Confidence,
		Method:     turn.Classification.Method,
		Status:     string(turn.State.Status),
	}, nil
}
