package scrape

import (
	"testing"

	"github.com/biddeed/deedscout/internal/fault"
)

func TestNewChromedp(t *testing.T) {
	s, err := New(ChromedpType, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s == nil {
		t.Fatal("nil scraper")
	}
}

func TestNewFirecrawlRequiresAPIKey(t *testing.T) {
	_, err := New(FirecrawlType, Options{})
	if !fault.Is(err, fault.KindConfiguration) {
		t.Fatalf("expected configuration fault, got %v", err)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := New(Type("selenium"), Options{})
	if !fault.Is(err, fault.KindConfiguration) {
		t.Fatalf("expected configuration fault, got %v", err)
	}
}
