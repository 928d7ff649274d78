package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/yungbote/convoroute-backend/internal/clients/openai"
	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// fakeLLM scripts the GenerateJSON answer; calls is the invocation count so
// tests can assert the LLM stage was skipped.
type fakeLLM struct {
	calls  int
	result map[string]any
	err    error
}

func (f *fakeLLM) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLLM) GenerateJSON(context.Context, openai.Tier, string, string, string, map[string]any) (map[string]any, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeLLM) GenerateText(context.Context, openai.Tier, string, string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func newTestClassifier(t *testing.T, llm openai.Client) Classifier {
	t.Helper()
	c, err := New(logger.NewNop(), llm, DefaultPatterns(), Thresholds{High: 0.8, Mid: 0.5, DegradedMin: 0.3})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return c
}

func TestHighConfidencePatternSkipsLLM(t *testing.T) {
	llm := &fakeLLM{}
	c := newTestClassifier(t, llm)

	// Keywords "precio" and "laptop", phrase "cuál es el precio", indicator
	// "$": every sub-score saturates, so the pattern stage alone decides.
	cls := c.Classify(context.Background(), Input{Text: "Hola, cuál es el precio del laptop? Tengo $1000"})

	if cls.Domain != "product" {
		t.Fatalf("expected domain product, got %q", cls.Domain)
	}
	if cls.AgentKey != "knowledge" {
		t.Fatalf("expected agent knowledge, got %q", cls.AgentKey)
	}
	if cls.Method != convo.MethodPattern {
		t.Fatalf("expected pattern method, got %q", cls.Method)
	}
	if cls.Confidence < 0.8 {
		t.Fatalf("expected confidence >= 0.8, got %v", cls.Confidence)
	}
	if llm.calls != 0 {
		t.Fatalf("LLM stage invoked %d times for a high-confidence pattern match", llm.calls)
	}
}

func TestMidConfidenceGoesToLLM(t *testing.T) {
	llm := &fakeLLM{result: map[string]any{"domain": "support", "confidence": 0.75}}
	c := newTestClassifier(t, llm)

	// "problema" and "error" saturate keywords (0.4) and "#" adds the
	// indicator weight (0.2): score 0.6, inside the ambiguous band.
	cls := c.Classify(context.Background(), Input{Text: "tengo un problema con un error en el pedido #1234"})

	if llm.calls != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", llm.calls)
	}
	if cls.Domain != "support" || cls.Method != convo.MethodLLM {
		t.Fatalf("expected support via llm, got %q via %q", cls.Domain, cls.Method)
	}
	if cls.Confidence != 0.75 {
		t.Fatalf("expected LLM confidence 0.75, got %v", cls.Confidence)
	}
}

func TestLLMFailureDegradesToPatternScore(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("rate limited")}
	c := newTestClassifier(t, llm)

	cls := c.Classify(context.Background(), Input{Text: "tengo un problema con un error en el pedido #1234"})

	if llm.calls != 1 {
		t.Fatalf("expected one LLM attempt, got %d", llm.calls)
	}
	if cls.Method != convo.MethodPattern {
		t.Fatalf("expected degraded pattern result, got method %q", cls.Method)
	}
	if cls.Domain != "support" {
		t.Fatalf("expected support, got %q", cls.Domain)
	}
}

func TestLLMNonCandidateDomainRejected(t *testing.T) {
	llm := &fakeLLM{result: map[string]any{"domain": "billing", "confidence": 0.95}}
	c := newTestClassifier(t, llm)

	cls := c.Classify(context.Background(), Input{Text: "tengo un problema con un error en el pedido #1234"})

	// A domain outside the candidate list must not be trusted; the pattern
	// score still clears the degraded floor.
	if cls.Domain == "billing" {
		t.Fatal("accepted a non-candidate domain from the LLM")
	}
	if cls.Method != convo.MethodPattern {
		t.Fatalf("expected degraded pattern result, got method %q", cls.Method)
	}
}

func TestNoMatchFallsBack(t *testing.T) {
	llm := &fakeLLM{}
	c := newTestClassifier(t, llm)

	cls := c.Classify(context.Background(), Input{Text: "xyzzy plugh"})

	if cls.Domain != convo.FallbackDomain {
		t.Fatalf("expected fallback domain, got %q", cls.Domain)
	}
	if cls.Method != convo.MethodFallback {
		t.Fatalf("expected fallback method, got %q", cls.Method)
	}
	if cls.AgentKey != tenant.DefaultFallbackAgent {
		t.Fatalf("expected default fallback agent, got %q", cls.AgentKey)
	}
	if llm.calls != 0 {
		t.Fatal("LLM consulted with zero pattern candidates")
	}
}

func TestTenantFallbackAgentUsed(t *testing.T) {
	c := newTestClassifier(t, nil)

	tctx := &tenant.Context{
		TenantID: "acme",
		Config:   domain.OrgConfig{FallbackAgent: "concierge"},
	}
	cls := c.Classify(context.Background(), Input{Text: "xyzzy plugh", Tenant: tctx})

	if cls.AgentKey != "concierge" {
		t.Fatalf("expected tenant fallback agent, got %q", cls.AgentKey)
	}
}

func TestDisabledDomainNotScored(t *testing.T) {
	c := newTestClassifier(t, nil)

	tctx := &tenant.Context{
		TenantID: "acme",
		Config:   domain.OrgConfig{EnabledDomains: []string{"support"}},
	}
	cls := c.Classify(context.Background(), Input{
		Text:   "cuál es el precio del laptop, cuesta $999?",
		Tenant: tctx,
	})

	if cls.Domain == "product" {
		t.Fatal("routed to a domain the tenant has disabled")
	}
	if _, scored := cls.Scores["product"]; scored {
		t.Fatal("disabled domain present in score breakdown")
	}
}

func TestPreviousDomainBreaksTies(t *testing.T) {
	set := PatternSet{Domains: []DomainPatterns{
		{Domain: "alpha", AgentKey: "a", Keywords: []string{"widget", "gadget"}},
		{Domain: "beta", AgentKey: "b", Keywords: []string{"widget", "gadget"}},
	}}
	c, err := New(logger.NewNop(), nil, set, Thresholds{High: 0.3, Mid: 0.5, DegradedMin: 0.3})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}

	cls := c.Classify(context.Background(), Input{Text: "the widget and the gadget", PreviousDomain: "beta"})
	if cls.Domain != "beta" {
		t.Fatalf("expected stickiness to beta, got %q", cls.Domain)
	}

	// Without a previous domain the tie resolves alphabetically.
	cls = c.Classify(context.Background(), Input{Text: "the widget and the gadget"})
	if cls.Domain != "alpha" {
		t.Fatalf("expected alphabetical tie-break to alpha, got %q", cls.Domain)
	}
}

func TestDomainAgentsCarryFullBreakdown(t *testing.T) {
	c := newTestClassifier(t, nil)
	cls := c.Classify(context.Background(), Input{Text: "hola, necesito ayuda con el precio"})
	for _, d := range []string{"product", "support", "smalltalk"} {
		if cls.DomainAgents[d] == "" {
			t.Fatalf("missing agent mapping for domain %q", d)
		}
	}
}
