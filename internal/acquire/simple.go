package acquire

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/biddeed/deedscout/internal/fault"
)

// ExtractRule pulls one named field out of a fetched document. Group selects
// the capture group; zero means the whole match.
type ExtractRule struct {
	Field   string `json:"field"`
	Pattern string `json:"pattern"`
	Group   int    `json:"group,omitempty"`
}

// SimpleFetcher performs unauthenticated document fetches and extracts
// fields with caller-supplied rules.
type SimpleFetcher struct {
	client   *http.Client
	maxChars int
}

func NewSimpleFetcher(timeout time.Duration, maxChars int) *SimpleFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 40000
	}
	return &SimpleFetcher{client: &http.Client{Timeout: timeout}, maxChars: maxChars}
}

// Fetch GETs the document and applies the extraction rules to its readable
// text. With no rules the whole text is returned under "document".
func (f *SimpleFetcher) Fetch(ctx context.Context, source, target string, rules []ExtractRule) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fault.New(fault.KindConfiguration, source, "fetch", err)
	}
	req.Header.Set("User-Agent", "DeedScout/1.0 (+research@biddeed.example)")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fault.New(fault.KindTimeout, source, "fetch", err)
		}
		return nil, fault.New(fault.KindUpstream, source, "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fault.Newf(fault.KindUpstream, source, "fetch", "status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fault.New(fault.KindUpstream, source, "fetch", err)
	}

	text := f.readableText(string(raw), target)
	return ExtractFields(source, text, rules)
}

// readableText strips boilerplate; on readability failure the raw document
// is used as-is so extraction rules can still match.
func (f *SimpleFetcher) readableText(raw, target string) string {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(raw), u)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		if len(raw) > f.maxChars {
			return raw[:f.maxChars]
		}
		return raw
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.maxChars {
		return text[:f.maxChars]
	}
	return text
}

// ExtractFields applies the rules to a document. A rule that matches nothing
// is skipped; when every rule misses the result is an extraction failure.
func ExtractFields(source, text string, rules []ExtractRule) (map[string]string, error) {
	if len(rules) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil, fault.Newf(fault.KindExtraction, source, "extract", "empty document")
		}
		return map[string]string{"document": text}, nil
	}

	fields := map[string]string{}
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fault.Newf(fault.KindConfiguration, source, "extract", "bad pattern for %s: %v", rule.Field, err)
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		group := rule.Group
		if group < 0 || group >= len(m) {
			group = 0
		}
		if v := strings.TrimSpace(m[group]); v != "" {
			fields[rule.Field] = v
		}
	}
	if len(fields) == 0 {
		return nil, fault.Newf(fault.KindExtraction, source, "extract", "no fields matched")
	}
	return fields, nil
}
