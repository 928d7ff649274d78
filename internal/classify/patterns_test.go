package classify

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPatternsMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	yaml := `
domains:
  - domain: product
    agent_key: catalog
    keywords: ["sku"]
  - domain: billing
    agent_key: billing
    keywords: ["factura", "invoice"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write patterns: %v", err)
	}

	set, err := LoadPatterns(path)
	if err != nil {
		t.Fatalf("load patterns: %v", err)
	}

	byDomain := map[string]DomainPatterns{}
	for _, d := range set.Domains {
		byDomain[d.Domain] = d
	}

	// product replaced wholesale, billing appended, smalltalk untouched.
	if got := byDomain["product"].AgentKey; got != "catalog" {
		t.Fatalf("product not replaced, agent_key = %q", got)
	}
	if len(byDomain["product"].Phrases) != 0 {
		t.Fatal("replaced domain kept default phrases")
	}
	if _, ok := byDomain["billing"]; !ok {
		t.Fatal("new domain not appended")
	}
	if _, ok := byDomain["smalltalk"]; !ok {
		t.Fatal("untouched default domain missing")
	}
}

func TestLoadPatternsEmptyPathReturnsDefaults(t *testing.T) {
	set, err := LoadPatterns("")
	if err != nil {
		t.Fatalf("load patterns: %v", err)
	}
	if len(set.Domains) != len(DefaultPatterns().Domains) {
		t.Fatalf("expected defaults, got %d domains", len(set.Domains))
	}
}

func TestLoadPatternsMissingFileKeepsDefaults(t *testing.T) {
	set, err := LoadPatterns(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(set.Domains) == 0 {
		t.Fatal("expected defaults alongside the error")
	}
}
