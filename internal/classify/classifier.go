package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/convoroute-backend/internal/clients/openai"
	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// Score weights and saturation counts for the pattern stage. A sub-score
// saturates to 1.0 once the hit count reaches its saturation constant.
const (
	keywordWeight   = 0.4
	phraseWeight    = 0.4
	indicatorWeight = 0.2

	keywordSaturation   = 2
	phraseSaturation    = 1
	indicatorSaturation = 1
)

type Thresholds struct {
	High        float64 // pattern result accepted outright
	Mid         float64 // LLM stage entry / LLM acceptance floor
	DegradedMin float64 // minimum pattern score kept when the LLM is down
}

func ThresholdsFromEnv() Thresholds {
	return Thresholds{
		High:        envutil.Float("CLASSIFY_HIGH_THRESHOLD", 0.8),
		Mid:         envutil.Float("CLASSIFY_MID_THRESHOLD", 0.5),
		DegradedMin: envutil.Float("CLASSIFY_DEGRADED_MIN", 0.3),
	}
}

// Input is one classification request. PreviousDomain enables session
// stickiness on ties.
type Input struct {
	Text           string
	PreviousDomain string
	Tenant         *tenant.Context
}

// Classifier maps message text to a DomainClassification. It always produces
// a result; LLM failures degrade, they never propagate.
type Classifier interface {
	Classify(ctx context.Context, in Input) convo.Classification
}

type classifier struct {
	log        *logger.Logger
	llm        openai.Client // nil disables the LLM stage
	patterns   PatternSet
	thresholds Thresholds
}

func New(log *logger.Logger, llm openai.Client, patterns PatternSet, th Thresholds) (Classifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(patterns.Domains) == 0 {
		return nil, fmt.Errorf("pattern set is empty")
	}
	if th.High <= 0 {
		th.High = 0.8
	}
	if th.Mid <= 0 {
		th.Mid = 0.5
	}
	if th.DegradedMin <= 0 {
		th.DegradedMin = 0.3
	}
	return &classifier{
		log:        log.With("service", "IntentClassifier"),
		llm:        llm,
		patterns:   patterns,
		thresholds: th,
	}, nil
}

// candidate is one scored domain from the pattern stage.
type candidate struct {
	patterns   DomainPatterns
	score      float64
	bestPhrase int // longest matched phrase, tie-break 1
}

func (c *classifier) Classify(ctx context.Context, in Input) convo.Classification {
	cands, scores, agents := c.patternStage(in)

	if len(cands) == 0 {
		return c.fallback(in, scores, agents)
	}
	top := cands[0]

	if top.score >= c.thresholds.High {
		return convo.Classification{
			Domain:       top.patterns.Domain,
			AgentKey:     top.patterns.AgentKey,
			Confidence:   top.score,
			Method:       convo.MethodPattern,
			Scores:       scores,
			DomainAgents: agents,
		}
	}

	if top.score >= c.thresholds.Mid && c.llm != nil {
		if cls, ok := c.llmStage(ctx, in, cands, scores, agents); ok {
			return cls
		}
		// LLM stage unavailable or unconvincing: degrade to the best
		// pattern score when it clears the floor.
		if top.score >= c.thresholds.DegradedMin {
			c.log.Warn("classification degraded to pattern score",
				"domain", top.patterns.Domain, "score", top.score)
			return convo.Classification{
				Domain:       top.patterns.Domain,
				AgentKey:     top.patterns.AgentKey,
				Confidence:   top.score,
				Method:       convo.MethodPattern,
				Scores:       scores,
				DomainAgents: agents,
			}
		}
	}

	return c.fallback(in, scores, agents)
}

func (c *classifier) fallback(in Input, scores map[string]float64, agents map[string]string) convo.Classification {
	agentKey := tenant.DefaultFallbackAgent
	if in.Tenant != nil {
		agentKey = in.Tenant.FallbackAgent()
	}
	return convo.Classification{
		Domain:       convo.FallbackDomain,
		AgentKey:     agentKey,
		Confidence:   0,
		Method:       convo.MethodFallback,
		Scores:       scores,
		DomainAgents: agents,
	}
}

// patternStage scores every tenant-enabled domain and orders candidates by
// score, then longest phrase match, then session stickiness, then domain name
// so the result is fully deterministic.
func (c *classifier) patternStage(in Input) ([]candidate, map[string]float64, map[string]string) {
	text := normalize(in.Text)
	scores := map[string]float64{}
	agents := map[string]string{}
	var cands []candidate

	for _, dp := range c.patterns.Domains {
		if in.Tenant != nil && !in.Tenant.DomainEnabled(dp.Domain) {
			continue
		}
		kw := saturate(countHits(text, dp.Keywords), keywordSaturation)
		ph, longest := phraseHits(text, dp.Phrases)
		phScore := saturate(ph, phraseSaturation)
		ind := saturate(countHits(text, dp.Indicators), indicatorSaturation)

		score := keywordWeight*kw + phraseWeight*phScore + indicatorWeight*ind
		scores[dp.Domain] = score
		agents[dp.Domain] = dp.AgentKey
		if score > 0 {
			cands = append(cands, candidate{patterns: dp, score: score, bestPhrase: longest})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].bestPhrase != cands[j].bestPhrase {
			return cands[i].bestPhrase > cands[j].bestPhrase
		}
		if in.PreviousDomain != "" {
			iPrev := cands[i].patterns.Domain == in.PreviousDomain
			jPrev := cands[j].patterns.Domain == in.PreviousDomain
			if iPrev != jPrev {
				return iPrev
			}
		}
		return cands[i].patterns.Domain < cands[j].patterns.Domain
	})
	return cands, scores, agents
}

func normalize(s string) string {
	return " " + strings.ToLower(strings.TrimSpace(s)) + " "
}

// countHits counts distinct needles present in text.
func countHits(text string, needles []string) int {
	hits := 0
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if strings.Contains(text, n) {
			hits++
		}
	}
	return hits
}

// phraseHits also reports the longest match for tie-breaking: on equal
// scores the more specific phrase wins.
func phraseHits(text string, phrases []string) (hits, longest int) {
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.Contains(text, p) {
			hits++
			if len(p) > longest {
				longest = len(p)
			}
		}
	}
	return hits, longest
}

func saturate(hits, saturation int) float64 {
	if saturation <= 0 || hits >= saturation {
		if hits > 0 {
			return 1
		}
		return 0
	}
	return float64(hits) / float64(saturation)
}
