package convo

// Classification methods, cheapest first.
const (
	MethodPattern  = "pattern"
	MethodLLM      = "llm"
	MethodFallback = "fallback"
)

// FallbackDomain is the designated always-available routing target.
const FallbackDomain = "fallback"

// Classification is produced once per message and never mutated.
type Classification struct {
	Domain     string             `json:"domain"`
	AgentKey   string             `json:"agent_key"`
	Confidence float64            `json:"confidence"`
	Method     string             `json:"method"`
	Scores     map[string]float64 `json:"scores_breakdown,omitempty"`
	// DomainAgents maps every scored domain to its agent key so the
	// supervisor can re-route using the breakdown alone.
	DomainAgents map[string]string `json:"domain_agents,omitempty"`
}

// NextBest returns the highest-scoring domain in the breakdown excluding the
// given ones. Used by the supervisor to pick a re-route candidate.
func (c Classification) NextBest(exclude map[string]bool) (string, float64, bool) {
	bestDomain := ""
	bestScore := 0.0
	for d, sc := range c.Scores {
		if exclude[d] || d == FallbackDomain {
			continue
		}
		if sc > bestScore || (sc == bestScore && bestDomain != "" && d < bestDomain) {
			bestDomain = d
			bestScore = sc
		}
	}
	if bestDomain == "" {
		return "", 0, false
	}
	return bestDomain, bestScore, true
}
