package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/convoroute-backend/internal/clients/openai"
	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type Action string

const (
	ActionFinish   Action = "finish"
	ActionReroute  Action = "reroute"
	ActionFallback Action = "fallback"
)

type Decision struct {
	Action     Action
	NextDomain string
	NextAgent  string
	Quality    float64
}

type SupervisorConfig struct {
	AcceptThreshold float64
	MaxReroutes     int
	// LLMScoring swaps the heuristic quality score for a fast-tier
	// self-assessment. Off by default so decisions stay deterministic.
	LLMScoring bool
}

func SupervisorConfigFromEnv() SupervisorConfig {
	return SupervisorConfig{
		AcceptThreshold: envutil.Float("SUPERVISOR_ACCEPT_THRESHOLD", 0.7),
		MaxReroutes:     envutil.Int("ORCH_MAX_REROUTES", 2),
		LLMScoring:      envutil.Bool("SUPERVISOR_LLM_SCORING", false),
	}
}

// Supervisor is the quality gate: accept the agent's response, escalate to
// the next-best domain, or hard-stop to the fallback agent once the re-route
// budget is spent.
type Supervisor struct {
	log *logger.Logger
	llm openai.Client
	cfg SupervisorConfig
}

func NewSupervisor(log *logger.Logger, llm openai.Client, cfg SupervisorConfig) (*Supervisor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.AcceptThreshold <= 0 || cfg.AcceptThreshold > 1 {
		cfg.AcceptThreshold = 0.7
	}
	if cfg.MaxReroutes < 0 {
		cfg.MaxReroutes = 2
	}
	return &Supervisor{
		log: log.With("service", "Supervisor"),
		llm: llm,
		cfg: cfg,
	}, nil
}

func (s *Supervisor) MaxReroutes() int { return s.cfg.MaxReroutes }

// Evaluate decides the fate of one agent response. turnHistory is the slice
// of routing entries recorded during the current turn only; agents dispatched
// on earlier turns stay eligible for re-routing. The reroute bound is a hard
// invariant: once st.RerouteCount reaches MaxReroutes the decision is always
// fallback, whatever the quality score says.
func (s *Supervisor) Evaluate(ctx context.Context, st *convo.ConversationState, cls convo.Classification, agentKey, response string, turnHistory []convo.RoutingDecision) Decision {
	quality := s.qualityScore(ctx, st.LastUserMessage(), response)

	if quality >= s.cfg.AcceptThreshold {
		return Decision{Action: ActionFinish, Quality: quality}
	}

	if st.RerouteCount >= s.cfg.MaxReroutes {
		s.log.Warn("re-route limit reached, forcing fallback",
			"thread_id", st.ThreadID,
			"reroute_count", st.RerouteCount,
			"quality", quality,
		)
		return Decision{Action: ActionFallback, Quality: quality}
	}

	next, ok := nextCandidate(turnHistory, cls, agentKey)
	if !ok {
		return Decision{Action: ActionFallback, Quality: quality}
	}
	return Decision{
		Action:     ActionReroute,
		NextDomain: next,
		NextAgent:  cls.DomainAgents[next],
		Quality:    quality,
	}
}

// nextCandidate picks the best-scored domain not yet tried this turn, using
// the original classification's score breakdown.
func nextCandidate(turnHistory []convo.RoutingDecision, cls convo.Classification, currentAgent string) (string, bool) {
	tried := map[string]bool{cls.Domain: true}
	for domain, agent := range cls.DomainAgents {
		if agent == currentAgent {
			tried[domain] = true
		}
		for _, rd := range turnHistory {
			if rd.Agent == agent && rd.Decision != "finish" {
				tried[domain] = true
			}
		}
	}
	domain, _, ok := cls.NextBest(tried)
	if !ok || cls.DomainAgents[domain] == "" {
		return "", false
	}
	return domain, true
}

// qualityScore blends relevance (term overlap with the user's message) and
// completeness (response substance). Both heuristics are deterministic.
func (s *Supervisor) qualityScore(ctx context.Context, userMessage, response string) float64 {
	if s.cfg.LLMScoring && s.llm != nil {
		if score, ok := s.llmQuality(ctx, userMessage, response); ok {
			return score
		}
		// Self-assessment unavailable; the heuristic is the floor.
	}
	relevance := termOverlap(userMessage, response)
	completeness := lengthScore(response)
	return 0.6*relevance + 0.4*completeness
}

var qualitySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"quality": map[string]any{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": "relevance and completeness of the response for the user's message",
		},
	},
	"required":             []string{"quality"},
	"additionalProperties": false,
}

const qualitySystem = "Rate how well the assistant response answers the user's message: relevance plus completeness, 0 to 1."

func (s *Supervisor) llmQuality(ctx context.Context, userMessage, response string) (float64, bool) {
	prompt := fmt.Sprintf("User message:\n%s\n\nAssistant response:\n%s", userMessage, response)
	obj, err := s.llm.GenerateJSON(ctx, openai.TierFast, qualitySystem, prompt, "response_quality", qualitySchema)
	if err != nil {
		s.log.Warn("LLM quality scoring failed, using heuristic", "error", err)
		return 0, false
	}
	q, ok := obj["quality"].(float64)
	if !ok || q < 0 || q > 1 {
		return 0, false
	}
	return q, true
}

// termOverlap is the share of significant user terms echoed by the response.
func termOverlap(userMessage, response string) float64 {
	userTerms := significantTerms(userMessage)
	if len(userTerms) == 0 {
		return 1
	}
	respText := strings.ToLower(response)
	hits := 0
	for term := range userTerms {
		if strings.Contains(respText, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(userTerms))
}

func significantTerms(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?¿¡\"'()[]")
		if len([]rune(w)) >= 4 {
			out[w] = true
		}
	}
	return out
}

// lengthScore saturates at 120 runes; one-liners read as incomplete.
func lengthScore(response string) float64 {
	n := len([]rune(strings.TrimSpace(response)))
	if n >= 120 {
		return 1
	}
	return float64(n) / 120
}
