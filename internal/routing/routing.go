package routing

import (
	"fmt"
	"strings"
)

// Strategy is the acquisition method chosen for a source.
type Strategy string

const (
	StrategyDirectAPI     Strategy = "direct_api"
	StrategySimpleFetch   Strategy = "simple_fetch"
	StrategyBrowserScrape Strategy = "browser_scrape"
)

// Descriptor is static metadata describing a source's integration
// characteristics. Descriptors are built once at startup and never mutated.
type Descriptor struct {
	Name                    string `json:"name"`
	HasDirectAPI            bool   `json:"has_direct_api"`
	RequiresAuth            bool   `json:"requires_auth"`
	HasComplexNavigation    bool   `json:"has_complex_navigation"`
	HasDynamicContent       bool   `json:"has_dynamic_content"`
	NeedsVisualConfirmation bool   `json:"needs_visual_confirmation"`
}

// Scrape-cost weights. A direct API beats any score, so it is checked before
// scoring rather than folded into it.
const (
	weightAuth       = 5
	weightNavigation = 5
	weightDynamic    = 3
	weightVisual     = 2

	scrapeThreshold = 5
)

// SelectStrategy maps a descriptor to an acquisition strategy. Pure and
// total: identical descriptors always yield identical strategies.
func SelectStrategy(d Descriptor) Strategy {
	if d.HasDirectAPI {
		return StrategyDirectAPI
	}
	score := 0
	if d.RequiresAuth {
		score += weightAuth
	}
	if d.HasComplexNavigation {
		score += weightNavigation
	}
	if d.HasDynamicContent {
		score += weightDynamic
	}
	if d.NeedsVisualConfirmation {
		score += weightVisual
	}
	if score > scrapeThreshold {
		return StrategyBrowserScrape
	}
	return StrategySimpleFetch
}

// Registry holds the descriptor table. Read-only after construction, so it
// is safe for unsynchronized concurrent reads.
type Registry struct {
	byName map[string]Descriptor
	names  []string
}

// NewRegistry builds a registry from the configured descriptors. Duplicate
// or empty names are configuration mistakes and rejected.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, fmt.Errorf("source descriptor with empty name")
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("duplicate source descriptor: %s", name)
		}
		d.Name = name
		r.byName[name] = d
		r.names = append(r.names, name)
	}
	return r, nil
}

// Lookup returns the descriptor for a named source.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns source names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// DefaultDescriptors covers the Brevard County sources the service ships
// with. The property appraiser exposes a public JSON API; the clerk's
// official records system (AcclaimWeb) is a multi-step form behind dynamic
// pages; competitor listing sites are plain documents.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "property-appraiser", HasDirectAPI: true},
		{Name: "official-records", HasComplexNavigation: true, HasDynamicContent: true},
		{Name: "competitor-listings", HasDynamicContent: true},
	}
}
