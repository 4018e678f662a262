package acquire

import (
	"context"
	"errors"
	"time"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/routing"
	scrapemodels "github.com/biddeed/deedscout/internal/scrape/models"
	"github.com/biddeed/deedscout/internal/telemetry"
)

const DefaultTimeout = 30 * time.Second

// Request names the source and carries whatever the chosen strategy needs:
// query parameters for a direct API, a URL plus extraction rules for a
// fetch, an action sequence and wait budget for a scrape.
type Request struct {
	Source     string
	URL        string
	Query      map[string]string
	Rules      []ExtractRule
	Actions    []scrapemodels.Action
	WaitBudget time.Duration
}

// Result is a normalized acquisition outcome with provenance.
type Result struct {
	Source    string            `json:"source"`
	Strategy  routing.Strategy  `json:"strategy"`
	Fields    map[string]string `json:"fields"`
	FetchedAt time.Time         `json:"fetched_at"`
	Elapsed   time.Duration     `json:"elapsed"`
}

// DirectAPI is the structured property-data collaborator.
type DirectAPI interface {
	Lookup(ctx context.Context, source string, query map[string]string) (map[string]string, error)
}

// DocumentFetcher is the plain document collaborator.
type DocumentFetcher interface {
	Fetch(ctx context.Context, source, url string, rules []ExtractRule) (map[string]string, error)
}

// Scraper is the browser-automation collaborator.
type Scraper interface {
	Run(ctx context.Context, job scrapemodels.Job) (scrapemodels.Document, error)
}

// Executor runs one acquisition per call. It keeps no state between calls
// and performs no retries; concurrent calls need no coordination.
type Executor struct {
	direct  DirectAPI
	fetcher DocumentFetcher
	scraper Scraper
	tele    *telemetry.Telemetry
	timeout time.Duration
}

func NewExecutor(direct DirectAPI, fetcher DocumentFetcher, scraper Scraper, tele *telemetry.Telemetry, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{direct: direct, fetcher: fetcher, scraper: scraper, tele: tele, timeout: timeout}
}

// Execute performs the fetch for the selected strategy. Exactly one
// telemetry record is emitted per call, whatever the outcome.
func (e *Executor) Execute(ctx context.Context, strategy routing.Strategy, req Request) (Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	fields, err := e.dispatch(ctx, strategy, req)
	elapsed := time.Since(start)

	if err != nil {
		// A raw deadline error from a collaborator stub or transport still
		// counts as a timeout for the caller.
		if errors.Is(err, context.DeadlineExceeded) && fault.KindOf(err) == "" {
			err = fault.New(fault.KindTimeout, req.Source, string(strategy), err)
		}
		e.record(req.Source, strategy, err, elapsed)
		// Provenance and the measured duration survive the failure so callers
		// can report how long the source took before giving up.
		return Result{Source: req.Source, Strategy: strategy, Elapsed: elapsed}, err
	}
	e.record(req.Source, strategy, nil, elapsed)
	return Result{
		Source:    req.Source,
		Strategy:  strategy,
		Fields:    fields,
		FetchedAt: start.UTC(),
		Elapsed:   elapsed,
	}, nil
}

func (e *Executor) dispatch(ctx context.Context, strategy routing.Strategy, req Request) (map[string]string, error) {
	switch strategy {
	case routing.StrategyDirectAPI:
		if e.direct == nil {
			return nil, fault.Newf(fault.KindConfiguration, req.Source, "execute", "direct api client not configured")
		}
		return e.direct.Lookup(ctx, req.Source, req.Query)
	case routing.StrategySimpleFetch:
		if e.fetcher == nil {
			return nil, fault.Newf(fault.KindConfiguration, req.Source, "execute", "document fetcher not configured")
		}
		return e.fetcher.Fetch(ctx, req.Source, req.URL, req.Rules)
	case routing.StrategyBrowserScrape:
		return e.browserScrape(ctx, req)
	default:
		return nil, fault.Newf(fault.KindConfiguration, req.Source, "execute", "unknown strategy %q", strategy)
	}
}

// browserScrape runs the bounded action sequence once. No extractable fields
// after the full wait budget is an extraction failure; the caller decides
// whether a reshaped request is worth another attempt.
func (e *Executor) browserScrape(ctx context.Context, req Request) (map[string]string, error) {
	if e.scraper == nil {
		return nil, fault.Newf(fault.KindConfiguration, req.Source, "execute", "scraper not configured")
	}
	doc, err := e.scraper.Run(ctx, scrapemodels.Job{
		URL:        req.URL,
		Actions:    req.Actions,
		WaitBudget: req.WaitBudget,
	})
	if err != nil {
		return nil, err
	}
	fields, err := ExtractFields(req.Source, doc.Text, req.Rules)
	if err != nil {
		return nil, err
	}
	if doc.HTMLHash != "" {
		fields["html_hash"] = doc.HTMLHash
	}
	return fields, nil
}

func (e *Executor) record(source string, strategy routing.Strategy, err error, elapsed time.Duration) {
	if e.tele == nil {
		return
	}
	e.tele.RecordAcquisition(source, string(strategy), telemetry.OutcomeFor(err), elapsed)
}
