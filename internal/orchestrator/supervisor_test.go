package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

func newTestSupervisor(t *testing.T, cfg SupervisorConfig) *Supervisor {
	t.Helper()
	s, err := NewSupervisor(logger.NewNop(), nil, cfg)
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	return s
}

func baseClassification() convo.Classification {
	return convo.Classification{
		Domain:     "product",
		AgentKey:   "knowledge",
		Confidence: 0.6,
		Method:     convo.MethodPattern,
		Scores: map[string]float64{
			"product":   0.6,
			"support":   0.4,
			"smalltalk": 0.1,
		},
		DomainAgents: map[string]string{
			"product":   "knowledge",
			"support":   "helpdesk",
			"smalltalk": "smalltalk",
		},
	}
}

func TestSupervisorAcceptsGoodResponse(t *testing.T) {
	s := newTestSupervisor(t, SupervisorConfig{AcceptThreshold: 0.7, MaxReroutes: 2})

	st := convo.NewState("acme", "t1")
	st.AppendMessage("user", "what is the price of the laptop")
	// Echoes every significant user term and is long enough to saturate the
	// completeness score.
	resp := "The price of this laptop model is $999 including taxes. " +
		"The laptop ships within two business days and the price includes a one year warranty."

	d := s.Evaluate(context.Background(), st, baseClassification(), "knowledge", resp, nil)
	if d.Action != ActionFinish {
		t.Fatalf("expected finish, got %s (quality %v)", d.Action, d.Quality)
	}
	if d.Quality < 0.7 {
		t.Fatalf("expected quality >= 0.7, got %v", d.Quality)
	}
}

func TestSupervisorReroutesToNextBestDomain(t *testing.T) {
	s := newTestSupervisor(t, SupervisorConfig{AcceptThreshold: 0.7, MaxReroutes: 2})

	st := convo.NewState("acme", "t1")
	st.AppendMessage("user", "my invoice subscription payment is broken somehow")

	d := s.Evaluate(context.Background(), st, baseClassification(), "knowledge", "ok", nil)
	if d.Action != ActionReroute {
		t.Fatalf("expected reroute, got %s", d.Action)
	}
	if d.NextDomain != "support" || d.NextAgent != "helpdesk" {
		t.Fatalf("expected support/helpdesk, got %s/%s", d.NextDomain, d.NextAgent)
	}
}

func TestSupervisorHardStopsAtRerouteLimit(t *testing.T) {
	s := newTestSupervisor(t, SupervisorConfig{AcceptThreshold: 0.7, MaxReroutes: 2})

	st := convo.NewState("acme", "t1")
	st.AppendMessage("user", "my invoice subscription payment is broken somehow")
	st.RerouteCount = 2

	d := s.Evaluate(context.Background(), st, baseClassification(), "helpdesk", "ok", nil)
	if d.Action != ActionFallback {
		t.Fatalf("expected fallback at the reroute limit, got %s", d.Action)
	}
}

func TestSupervisorFallsBackWhenNoCandidateLeft(t *testing.T) {
	s := newTestSupervisor(t, SupervisorConfig{AcceptThreshold: 0.7, MaxReroutes: 5})

	cls := baseClassification()
	st := convo.NewState("acme", "t1")
	st.AppendMessage("user", "my invoice subscription payment is broken somehow")
	// Every alternative agent has already failed or been dispatched this turn.
	st.RecordRouting("helpdesk", "dispatch", 0.4)
	st.RecordRouting("smalltalk", "agent_failed", 0.1)

	d := s.Evaluate(context.Background(), st, cls, "knowledge", "ok", st.RoutingHistory)
	if d.Action != ActionFallback {
		t.Fatalf("expected fallback with no candidates, got %s (next %s)", d.Action, d.NextDomain)
	}
}

func TestSupervisorIgnoresEarlierTurnRouting(t *testing.T) {
	s := newTestSupervisor(t, SupervisorConfig{AcceptThreshold: 0.7, MaxReroutes: 2})

	// An earlier turn already dispatched helpdesk and finished there. That
	// must not shrink this turn's candidate pool: the next-best domain for
	// the current message is still support.
	st := convo.NewState("acme", "t1")
	st.AppendMessage("user", "the helpdesk fixed my login last week")
	st.RecordRouting("helpdesk", "dispatch", 0.5)
	st.RecordRouting("helpdesk", "finish", 0.5)
	st.AppendMessage("user", "my invoice subscription payment is broken somehow")

	d := s.Evaluate(context.Background(), st, baseClassification(), "knowledge", "ok", nil)
	if d.Action != ActionReroute {
		t.Fatalf("expected reroute, got %s", d.Action)
	}
	if d.NextDomain != "support" || d.NextAgent != "helpdesk" {
		t.Fatalf("expected support/helpdesk, got %s/%s", d.NextDomain, d.NextAgent)
	}
}

func TestQualityScoreComponents(t *testing.T) {
	s := newTestSupervisor(t, SupervisorConfig{AcceptThreshold: 0.7, MaxReroutes: 2})

	// Perfect overlap plus saturated length.
	user := "laptop price warranty"
	resp := "laptop price warranty " + strings.Repeat("details ", 20)
	if q := s.qualityScore(context.Background(), user, resp); q < 0.99 {
		t.Fatalf("expected near-perfect quality, got %v", q)
	}

	// Zero overlap, tiny response.
	if q := s.qualityScore(context.Background(), "laptop price warranty", "no"); q > 0.2 {
		t.Fatalf("expected poor quality, got %v", q)
	}

	// Short user messages with no significant terms count overlap as full.
	if q := s.qualityScore(context.Background(), "ok", strings.Repeat("a", 120)); q < 0.99 {
		t.Fatalf("expected full score for trivial user message, got %v", q)
	}
}
