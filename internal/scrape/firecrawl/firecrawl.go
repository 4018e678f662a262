package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/scrape/models"
)

const defaultBaseURL = "https://api.firecrawl.dev/v2"

// Client talks to the Firecrawl scraping service. Firecrawl drives a hosted
// browser through a declarative action sequence and returns the rendered
// page as markdown.
type Client struct {
	apiKey     string
	baseURL    string
	maxChars   int
	httpClient *http.Client
}

// NewClient builds a Firecrawl client. The API key is required; the base
// URL is overridable for tests.
func NewClient(apiKey, baseURL string, timeout time.Duration, maxChars int) (*Client, error) {
	if apiKey == "" {
		return nil, fault.Newf(fault.KindConfiguration, "firecrawl", "new", "api key required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxChars:   maxChars,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// scrapeRequest mirrors the Firecrawl v2 /scrape payload.
type scrapeRequest struct {
	URL     string          `json:"url"`
	Formats []string        `json:"formats"`
	Actions []firecrawlStep `json:"actions,omitempty"`
	WaitFor int             `json:"waitFor,omitempty"`
}

type firecrawlStep struct {
	Type         string `json:"type"`
	Selector     string `json:"selector,omitempty"`
	Text         string `json:"text,omitempty"`
	Milliseconds int    `json:"milliseconds,omitempty"`
	URL          string `json:"url,omitempty"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			Title      string `json:"title"`
			StatusCode int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

// Run executes one bounded scrape job against the Firecrawl API.
func (c *Client) Run(ctx context.Context, job models.Job) (models.Document, error) {
	if err := job.Validate(); err != nil {
		return models.Document{}, fault.New(fault.KindConfiguration, "firecrawl", "run", err)
	}
	t0 := time.Now()

	payload := scrapeRequest{
		URL:     job.URL,
		Formats: []string{"markdown"},
		WaitFor: int(job.WaitBudget / time.Millisecond),
	}
	for _, a := range job.Actions {
		payload.Actions = append(payload.Actions, firecrawlStep{
			Type:         translateAction(a.Type),
			Selector:     a.Selector,
			Text:         a.Text,
			Milliseconds: a.Milliseconds,
			URL:          a.URL,
		})
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewBuffer(jsonData))
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Document{}, fault.New(fault.KindTimeout, "firecrawl", "scrape", err)
		}
		return models.Document{}, fault.New(fault.KindUpstream, "firecrawl", "scrape", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.Document{}, fault.New(fault.KindUpstream, "firecrawl", "scrape", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Document{}, fault.Newf(fault.KindUpstream, "firecrawl", "scrape", "status %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var sr scrapeResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return models.Document{}, fault.New(fault.KindParse, "firecrawl", "scrape", err)
	}
	if !sr.Success {
		return models.Document{}, fault.Newf(fault.KindUpstream, "firecrawl", "scrape", "scrape rejected: %s", sr.Error)
	}

	text := sr.Data.Markdown
	if c.maxChars > 0 && len(text) > c.maxChars {
		text = text[:c.maxChars]
	}
	status := sr.Data.Metadata.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return models.Document{
		URL:      job.URL,
		Title:    sr.Data.Metadata.Title,
		Text:     text,
		HTML:     sr.Data.HTML,
		Status:   status,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}

// translateAction maps our action names onto Firecrawl's vocabulary, which
// calls text entry "write".
func translateAction(t models.ActionType) string {
	switch t {
	case models.ActionInput:
		return "write"
	default:
		return string(t)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
