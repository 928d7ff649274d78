package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DomainPatterns is the pattern-stage knowledge for one domain: keyword hits,
// phrase hits, and symbolic indicators (currency signs, order numbers, ...).
type DomainPatterns struct {
	Domain     string   `yaml:"domain"`
	AgentKey   string   `yaml:"agent_key"`
	Keywords   []string `yaml:"keywords"`
	Phrases    []string `yaml:"phrases"`
	Indicators []string `yaml:"indicators"`
}

type PatternSet struct {
	Domains []DomainPatterns `yaml:"domains"`
}

// DefaultPatterns covers the generic domains every deployment understands.
// Tenant-specific verticals extend this via CLASSIFY_PATTERNS_PATH.
func DefaultPatterns() PatternSet {
	return PatternSet{Domains: []DomainPatterns{
		{
			Domain:   "product",
			AgentKey: "knowledge",
			Keywords: []string{"precio", "price", "producto", "product", "laptop", "stock", "disponible", "available", "catalogo", "catalog", "comprar", "buy"},
			Phrases:  []string{"cuál es el precio", "how much is", "do you have", "tienen disponible", "what is the price"},
			Indicators: []string{"$", "€", "usd", "mxn"},
		},
		{
			Domain:   "support",
			AgentKey: "knowledge",
			Keywords: []string{"ayuda", "help", "problema", "problem", "error", "falla", "broken", "refund", "devolución", "queja", "complaint"},
			Phrases:  []string{"no funciona", "doesn't work", "necesito ayuda", "i need help", "quiero devolver"},
			Indicators: []string{"#"},
		},
		{
			Domain:   "smalltalk",
			AgentKey: "smalltalk",
			Keywords: []string{"hola", "hello", "hi", "gracias", "thanks", "buenos", "buenas", "adiós", "bye"},
			Phrases:  []string{"buenos días", "buenas tardes", "good morning", "how are you", "cómo estás"},
		},
	}}
}

// LoadPatterns merges YAML-defined domains over the defaults. A domain with
// the same name replaces the default entry wholesale.
func LoadPatterns(path string) (PatternSet, error) {
	base := DefaultPatterns()
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read patterns file: %w", err)
	}
	var extra PatternSet
	if err := yaml.Unmarshal(raw, &extra); err != nil {
		return base, fmt.Errorf("parse patterns file: %w", err)
	}

	byDomain := map[string]int{}
	for i, d := range base.Domains {
		byDomain[d.Domain] = i
	}
	for _, d := range extra.Domains {
		if strings.TrimSpace(d.Domain) == "" {
			continue
		}
		if i, ok := byDomain[d.Domain]; ok {
			base.Domains[i] = d
		} else {
			base.Domains = append(base.Domains, d)
		}
	}
	return base, nil
}
