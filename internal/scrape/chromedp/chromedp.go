package chromedp

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/scrape/models"
)

// Runner drives a local headless Chrome through the job's action sequence.
// It is the self-hosted alternative to the remote scraping service.
type Runner struct {
	Timeout  time.Duration
	MaxChars int
}

// Run executes one bounded scrape job in a fresh browser context.
func (r *Runner) Run(ctx context.Context, job models.Job) (models.Document, error) {
	if err := job.Validate(); err != nil {
		return models.Document{}, fault.New(fault.KindConfiguration, "chromedp", "run", err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t0 := time.Now()

	html, err := r.fetchHTML(ctx, job)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Document{}, fault.New(fault.KindTimeout, "chromedp", "run", err)
		}
		return models.Document{}, fault.New(fault.KindUpstream, "chromedp", "run", err)
	}

	doc := models.Document{
		URL:      job.URL,
		HTML:     html,
		HTMLHash: hashHTML(html),
		Status:   200,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}

	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(job.URL))
	if err != nil {
		// Raw HTML is still usable by extraction rules.
		doc.Text = html
		return doc, nil
	}
	text := article.TextContent
	if r.MaxChars > 0 && len(text) > r.MaxChars {
		text = text[:r.MaxChars]
	}
	doc.Title = strings.TrimSpace(article.Title)
	doc.Text = strings.TrimSpace(text)
	return doc, nil
}

// hashHTML fingerprints the rendered page for change detection downstream.
func hashHTML(html string) string {
	sum := sha1.Sum([]byte(html))
	return hex.EncodeToString(sum[:])
}

func (r *Runner) fetchHTML(ctx context.Context, job models.Job) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("DeedScout/1.0 (+research@biddeed.example)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	tasks := chromedp.Tasks{
		chromedp.Navigate(job.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	for _, a := range job.Actions {
		switch a.Type {
		case models.ActionNavigate:
			tasks = append(tasks,
				chromedp.Navigate(a.URL),
				chromedp.WaitReady("body", chromedp.ByQuery),
			)
		case models.ActionWait:
			tasks = append(tasks, chromedp.Sleep(time.Duration(a.Milliseconds)*time.Millisecond))
		case models.ActionInput:
			tasks = append(tasks, chromedp.SendKeys(a.Selector, a.Text, chromedp.ByQuery))
		case models.ActionClick:
			tasks = append(tasks, chromedp.Click(a.Selector, chromedp.ByQuery))
		}
	}
	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(bctx, tasks); err != nil {
		return "", err
	}
	return html, nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
