package routing

import "testing"

func TestSelectStrategyDirectAPIOverridesEverything(t *testing.T) {
	// Every combination of the other four flags must still yield DirectAPI.
	for i := 0; i < 16; i++ {
		d := Descriptor{
			Name:                    "any",
			HasDirectAPI:            true,
			RequiresAuth:            i&1 != 0,
			HasComplexNavigation:    i&2 != 0,
			HasDynamicContent:       i&4 != 0,
			NeedsVisualConfirmation: i&8 != 0,
		}
		if got := SelectStrategy(d); got != StrategyDirectAPI {
			t.Fatalf("combination %04b: got %s, want %s", i, got, StrategyDirectAPI)
		}
	}
}

func TestSelectStrategyScoring(t *testing.T) {
	cases := []struct {
		name string
		d    Descriptor
		want Strategy
	}{
		{
			name: "all false scores zero",
			d:    Descriptor{Name: "plain"},
			want: StrategySimpleFetch,
		},
		{
			name: "navigation plus dynamic scores eight",
			d:    Descriptor{Name: "records", HasComplexNavigation: true, HasDynamicContent: true},
			want: StrategyBrowserScrape,
		},
		{
			name: "dynamic alone scores three",
			d:    Descriptor{Name: "listings", HasDynamicContent: true},
			want: StrategySimpleFetch,
		},
		{
			name: "auth alone scores exactly five",
			d:    Descriptor{Name: "portal", RequiresAuth: true},
			want: StrategySimpleFetch,
		},
		{
			name: "navigation alone scores exactly five",
			d:    Descriptor{Name: "forms", HasComplexNavigation: true},
			want: StrategySimpleFetch,
		},
		{
			name: "dynamic plus visual scores exactly five",
			d:    Descriptor{Name: "gallery", HasDynamicContent: true, NeedsVisualConfirmation: true},
			want: StrategySimpleFetch,
		},
		{
			name: "auth plus visual scores seven",
			d:    Descriptor{Name: "secure", RequiresAuth: true, NeedsVisualConfirmation: true},
			want: StrategyBrowserScrape,
		},
		{
			name: "everything except api",
			d: Descriptor{
				Name:                    "worst",
				RequiresAuth:            true,
				HasComplexNavigation:    true,
				HasDynamicContent:       true,
				NeedsVisualConfirmation: true,
			},
			want: StrategyBrowserScrape,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectStrategy(tc.d); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSelectStrategyIsPure(t *testing.T) {
	d := Descriptor{Name: "records", HasComplexNavigation: true, HasDynamicContent: true}
	first := SelectStrategy(d)
	second := SelectStrategy(d)
	if first != second {
		t.Fatalf("two calls with the same descriptor diverged: %s vs %s", first, second)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]Descriptor{{Name: "a"}, {Name: "a"}})
	if err == nil {
		t.Fatal("expected error for duplicate descriptor names")
	}
}

func TestNewRegistryRejectsEmptyName(t *testing.T) {
	_, err := NewRegistry([]Descriptor{{Name: "  "}})
	if err == nil {
		t.Fatal("expected error for empty descriptor name")
	}
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry(DefaultDescriptors())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	d, ok := reg.Lookup("property-appraiser")
	if !ok {
		t.Fatal("property-appraiser not found")
	}
	if !d.HasDirectAPI {
		t.Fatal("property-appraiser should have a direct API")
	}
	if _, ok := reg.Lookup("nope"); ok {
		t.Fatal("unexpected hit for unknown source")
	}
	if got := len(reg.Names()); got != 3 {
		t.Fatalf("expected 3 names, got %d", got)
	}
}
