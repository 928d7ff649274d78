package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/convoroute-backend/internal/clients/openai"
	"github.com/yungbote/convoroute-backend/internal/convo"
)

const llmStageSystem = "You classify a customer message into exactly one of the candidate business domains. Use the pattern hints as weak evidence only. Report your own confidence between 0 and 1."

const llmCandidateLimit = 3

var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"domain": map[string]any{
			"type":        "string",
			"description": "one of the candidate domains",
		},
		"confidence": map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
	},
	"required":             []string{"domain", "confidence"},
	"additionalProperties": false,
}

// llmStage asks the fast tier to arbitrate between the top pattern
// candidates. ok=false means the caller should degrade; this stage never
// returns an error.
func (c *classifier) llmStage(ctx context.Context, in Input, cands []candidate, scores map[string]float64, agents map[string]string) (convo.Classification, bool) {
	top := cands
	if len(top) > llmCandidateLimit {
		top = top[:llmCandidateLimit]
	}

	var b strings.Builder
	b.WriteString("Candidate domains with pattern scores:\n")
	byDomain := map[string]DomainPatterns{}
	for _, cand := range top {
		fmt.Fprintf(&b, "- %s (pattern score %.2f)\n", cand.patterns.Domain, cand.score)
		byDomain[cand.patterns.Domain] = cand.patterns
	}
	b.WriteString("\nMessage: ")
	b.WriteString(in.Text)

	obj, err := c.llm.GenerateJSON(ctx, openai.TierFast, llmStageSystem, b.String(), "domain_classification", classificationSchema)
	if err != nil {
		c.log.Warn("LLM classification stage failed", "error", err)
		return convo.Classification{}, false
	}

	domain, _ := obj["domain"].(string)
	confidence, _ := obj["confidence"].(float64)
	dp, known := byDomain[strings.TrimSpace(domain)]
	if !known {
		c.log.Warn("LLM returned a non-candidate domain", "domain", domain)
		return convo.Classification{}, false
	}
	if confidence < c.thresholds.Mid {
		return convo.Classification{}, false
	}
	return convo.Classification{
		Domain:       dp.Domain,
		AgentKey:     dp.AgentKey,
		Confidence:   confidence,
		Method:       convo.MethodLLM,
		Scores:       scores,
		DomainAgents: agents,
	}, true
}
