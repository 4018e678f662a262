package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/routing"
	scrapemodels "github.com/biddeed/deedscout/internal/scrape/models"
	"github.com/biddeed/deedscout/internal/telemetry"
)

type stubDirect struct {
	fields map[string]string
	err    error
}

func (s stubDirect) Lookup(ctx context.Context, source string, query map[string]string) (map[string]string, error) {
	return s.fields, s.err
}

type stubScraper struct {
	doc   scrapemodels.Document
	err   error
	block bool
}

func (s stubScraper) Run(ctx context.Context, job scrapemodels.Job) (scrapemodels.Document, error) {
	if s.block {
		<-ctx.Done()
		return scrapemodels.Document{}, ctx.Err()
	}
	return s.doc, s.err
}

func newTestTelemetry() *telemetry.Telemetry {
	return telemetry.New(prometheus.NewRegistry())
}

func TestExecuteDirectAPI(t *testing.T) {
	exec := NewExecutor(stubDirect{fields: map[string]string{"owner_name": "JOHN DOE"}}, nil, nil, newTestTelemetry(), time.Second)
	res, err := exec.Execute(context.Background(), routing.StrategyDirectAPI, Request{Source: "property-appraiser"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Source != "property-appraiser" || res.Strategy != routing.StrategyDirectAPI {
		t.Fatalf("bad provenance: %+v", res)
	}
	if res.Fields["owner_name"] != "JOHN DOE" {
		t.Fatalf("bad fields: %v", res.Fields)
	}
	if res.FetchedAt.IsZero() {
		t.Fatal("FetchedAt not set")
	}
}

func TestExecuteTimeoutWithinBudget(t *testing.T) {
	budget := 150 * time.Millisecond
	exec := NewExecutor(nil, nil, stubScraper{block: true}, newTestTelemetry(), budget)

	start := time.Now()
	res, err := exec.Execute(context.Background(), routing.StrategyBrowserScrape, Request{Source: "official-records", URL: "https://example.test"})
	elapsed := time.Since(start)

	if !fault.Is(err, fault.KindTimeout) {
		t.Fatalf("expected timeout fault, got %v", err)
	}
	if elapsed > budget+500*time.Millisecond {
		t.Fatalf("timeout took %s, budget was %s", elapsed, budget)
	}
	// Failures still report provenance and the measured duration.
	if res.Source != "official-records" || res.Strategy != routing.StrategyBrowserScrape {
		t.Fatalf("bad provenance on failure: %+v", res)
	}
	if res.Elapsed < budget {
		t.Fatalf("Elapsed = %s, want at least the %s budget", res.Elapsed, budget)
	}
}

func TestExecuteBrowserScrapeExtractionError(t *testing.T) {
	scraper := stubScraper{doc: scrapemodels.Document{Text: "nothing useful here"}}
	exec := NewExecutor(nil, nil, scraper, newTestTelemetry(), time.Second)
	_, err := exec.Execute(context.Background(), routing.StrategyBrowserScrape, Request{
		Source: "official-records",
		URL:    "https://example.test",
		Rules:  []ExtractRule{{Field: "amount", Pattern: `\$([\d,]+)`, Group: 1}},
	})
	if !fault.Is(err, fault.KindExtraction) {
		t.Fatalf("expected extraction fault, got %v", err)
	}
}

func TestExecuteUnknownStrategy(t *testing.T) {
	exec := NewExecutor(nil, nil, nil, newTestTelemetry(), time.Second)
	_, err := exec.Execute(context.Background(), routing.Strategy("teleport"), Request{Source: "x"})
	if !fault.Is(err, fault.KindConfiguration) {
		t.Fatalf("expected configuration fault, got %v", err)
	}
}

// Five sources with independent stubs, three succeeding and two failing,
// must yield five independent results with no cross-contamination.
func TestExecuteConcurrentIndependence(t *testing.T) {
	mux := http.NewServeMux()
	for i := 0; i < 3; i++ {
		i := i
		mux.HandleFunc(fmt.Sprintf("/ok%d/search", i), func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"ownerName":"OWNER %d","propertyAddress":"%d MAIN ST"}`, i, i)
		})
	}
	mux.HandleFunc("/bad0/search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})
	mux.HandleFunc("/bad1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tele := newTestTelemetry()
	type outcome struct {
		res Result
		err error
	}
	outcomes := make([]outcome, 5)
	paths := []string{"/ok0", "/ok1", "/ok2", "/bad0", "/bad1"}

	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			direct := NewDirectClient(srv.URL+p, "", time.Second)
			exec := NewExecutor(direct, nil, nil, tele, time.Second)
			res, err := exec.Execute(context.Background(), routing.StrategyDirectAPI, Request{
				Source: fmt.Sprintf("source-%d", i),
				Query:  map[string]string{"parcel_id": fmt.Sprintf("%d", i)},
			})
			outcomes[i] = outcome{res, err}
		}(i, p)
	}
	wg.Wait()

	for i := 0; i < 3; i++ {
		if outcomes[i].err != nil {
			t.Fatalf("source-%d: unexpected error %v", i, outcomes[i].err)
		}
		want := fmt.Sprintf("OWNER %d", i)
		if got := outcomes[i].res.Fields["owner_name"]; got != want {
			t.Fatalf("source-%d: got owner %q, want %q", i, got, want)
		}
	}
	if !fault.Is(outcomes[3].err, fault.KindUpstream) {
		t.Fatalf("source-3: expected upstream fault, got %v", outcomes[3].err)
	}
	if !fault.Is(outcomes[4].err, fault.KindParse) {
		t.Fatalf("source-4: expected parse fault, got %v", outcomes[4].err)
	}
}

func TestDirectClientLookupMapsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("accountNumber"); got != "2517790" {
			t.Errorf("accountNumber = %q", got)
		}
		fmt.Fprint(w, `{"accountNumber":"2517790","ownerName":"JANE ROE","propertyAddress":"4127 ARLINGTON AVE","city":"Cocoa","assessedValue":185000,"justValue":201500,"livingArea":1450,"yearBuilt":1987}`)
	}))
	defer srv.Close()

	c := NewDirectClient(srv.URL, "", time.Second)
	fields, err := c.Lookup(context.Background(), "property-appraiser", map[string]string{"parcel_id": "2517790"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	want := map[string]string{
		"parcel_id":      "2517790",
		"owner_name":     "JANE ROE",
		"address":        "4127 ARLINGTON AVE",
		"city":           "Cocoa",
		"assessed_value": "185000",
		"just_value":     "201500",
		"living_area":    "1450",
		"year_built":     "1987",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("field %s = %q, want %q", k, fields[k], v)
		}
	}
}

func TestDirectClientLookupEmptyRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewDirectClient(srv.URL, "", time.Second)
	_, err := c.Lookup(context.Background(), "property-appraiser", map[string]string{"parcel_id": "0"})
	if !fault.Is(err, fault.KindExtraction) {
		t.Fatalf("expected extraction fault, got %v", err)
	}
}

func TestSimpleFetcherExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article><h1>Auction notice</h1><p>Case 05-2024-CA-029012 judgment $185,000 set for sale.</p></article></body></html>`)
	}))
	defer srv.Close()

	f := NewSimpleFetcher(time.Second, 0)
	fields, err := f.Fetch(context.Background(), "competitor-listings", srv.URL, []ExtractRule{
		{Field: "case_number", Pattern: `(\d{2}-\d{4}-[A-Z]{2}-\d{6})`, Group: 1},
		{Field: "judgment", Pattern: `judgment \$([\d,]+)`, Group: 1},
		{Field: "missing", Pattern: `never-matches-anything-\d{9}`},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if fields["case_number"] != "05-2024-CA-029012" {
		t.Fatalf("case_number = %q", fields["case_number"])
	}
	if fields["judgment"] != "185,000" {
		t.Fatalf("judgment = %q", fields["judgment"])
	}
	if _, ok := fields["missing"]; ok {
		t.Fatal("non-matching rule should be absent, not empty")
	}
}

func TestSimpleFetcherNoRuleMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>unrelated content</p></body></html>`)
	}))
	defer srv.Close()

	f := NewSimpleFetcher(time.Second, 0)
	_, err := f.Fetch(context.Background(), "competitor-listings", srv.URL, []ExtractRule{
		{Field: "amount", Pattern: `\$[\d,]+`},
	})
	if !fault.Is(err, fault.KindExtraction) {
		t.Fatalf("expected extraction fault, got %v", err)
	}
}

func TestSimpleFetcherUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewSimpleFetcher(time.Second, 0)
	_, err := f.Fetch(context.Background(), "competitor-listings", srv.URL, nil)
	if !fault.Is(err, fault.KindUpstream) {
		t.Fatalf("expected upstream fault, got %v", err)
	}
}

func TestExtractFieldsBadPattern(t *testing.T) {
	_, err := ExtractFields("x", "text", []ExtractRule{{Field: "f", Pattern: `([`}})
	if !fault.Is(err, fault.KindConfiguration) {
		t.Fatalf("expected configuration fault, got %v", err)
	}
}
