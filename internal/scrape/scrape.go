package scrape

import (
	"context"
	"time"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/scrape/chromedp"
	"github.com/biddeed/deedscout/internal/scrape/firecrawl"
	"github.com/biddeed/deedscout/internal/scrape/models"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultMaxChars = 40000
)

// Scraper runs one bounded browser interaction job. Implementations perform
// no retries; retry policy belongs to the caller.
type Scraper interface {
	Run(ctx context.Context, job models.Job) (models.Document, error)
}

// Type selects a scraping backend.
type Type string

const (
	FirecrawlType Type = "firecrawl"
	ChromedpType  Type = "chromedp"
)

// Options configures a scraping backend.
type Options struct {
	APIKey   string // firecrawl only
	BaseURL  string // firecrawl only; override for tests
	Timeout  time.Duration
	MaxChars int
}

// New creates a scraper of the given type.
func New(t Type, opts Options) (Scraper, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}

	switch t {
	case FirecrawlType:
		return firecrawl.NewClient(opts.APIKey, opts.BaseURL, opts.Timeout, opts.MaxChars)
	case ChromedpType:
		return &chromedp.Runner{Timeout: opts.Timeout, MaxChars: opts.MaxChars}, nil
	default:
		return nil, fault.Newf(fault.KindConfiguration, "scrape", "new", "unsupported scraper type: %q", t)
	}
}
