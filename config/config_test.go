package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `{
  "llm": {"api_key": "sk-test"},
  "sources": {"direct_api_base_url": "https://appraiser.example/api"},
  "storage": {"postgres": {"dsn": "postgres://localhost/deedscout"}}
}`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":10001" {
		t.Fatalf("address default = %q", cfg.Server.Address)
	}
	if cfg.LLM.Provider != "openai" {
		t.Fatalf("provider default = %q", cfg.LLM.Provider)
	}
	// No targets configured: the built-in descriptor set applies.
	descs := cfg.Sources.Descriptors()
	if len(descs) != 3 || descs[0].Name != "property-appraiser" {
		t.Fatalf("descriptors = %+v", descs)
	}
}

// A direct-API source with no base URL must be rejected at load time, not
// surface later as a per-request failure.
func TestLoadRejectsDirectAPIWithoutBaseURL(t *testing.T) {
	_, err := Load(writeConfig(t, `{
	  "llm": {"api_key": "sk-test"},
	  "sources": {
	    "targets": [{"name": "property-appraiser", "has_direct_api": true}]
	  },
	  "storage": {"postgres": {"dsn": "postgres://localhost/deedscout"}}
	}`))
	if err == nil {
		t.Fatal("expected error for missing direct_api_base_url")
	}
	if !strings.Contains(err.Error(), "direct_api_base_url") {
		t.Fatalf("err = %v", err)
	}
}

// The built-in default descriptors include a direct-API source, so an empty
// sources section still requires the base URL.
func TestLoadRejectsDefaultSourcesWithoutBaseURL(t *testing.T) {
	_, err := Load(writeConfig(t, `{
	  "llm": {"api_key": "sk-test"},
	  "storage": {"postgres": {"dsn": "postgres://localhost/deedscout"}}
	}`))
	if err == nil {
		t.Fatal("expected error for missing direct_api_base_url")
	}
	if !strings.Contains(err.Error(), "direct_api_base_url") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadRejectsMissingLLMKey(t *testing.T) {
	_, err := Load(writeConfig(t, `{
	  "sources": {"direct_api_base_url": "https://appraiser.example/api"},
	  "storage": {"postgres": {"dsn": "postgres://localhost/deedscout"}}
	}`))
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadRejectsMissingPostgresDSN(t *testing.T) {
	_, err := Load(writeConfig(t, `{
	  "llm": {"api_key": "sk-test"},
	  "sources": {"direct_api_base_url": "https://appraiser.example/api"}
	}`))
	if err == nil || !strings.Contains(err.Error(), "postgres.dsn") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadRejectsBadScrapeBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `{
	  "llm": {"api_key": "sk-test"},
	  "scrape": {"backend": "selenium"},
	  "sources": {"direct_api_base_url": "https://appraiser.example/api"},
	  "storage": {"postgres": {"dsn": "postgres://localhost/deedscout"}}
	}`))
	if err == nil || !strings.Contains(err.Error(), "scrape.backend") {
		t.Fatalf("err = %v", err)
	}
}

func TestSourcesValidateAllowsFetchOnlySources(t *testing.T) {
	s := SourcesConfig{Targets: []SourceConfig{
		{Name: "competitor-listings", HasDynamicContent: true},
	}}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
