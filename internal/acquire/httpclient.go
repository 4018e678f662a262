package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/biddeed/deedscout/internal/fault"
)

// HTTPClient is a thin JSON round-trip helper. It performs no retries:
// retry-with-backoff policy belongs to whatever orchestrates acquisitions.
type HTTPClient struct {
	source string
	client *http.Client
}

func NewHTTPClient(source string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{source: source, client: &http.Client{Timeout: timeout}}
}

// DoJSON issues one request and decodes a JSON response into out.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fault.New(fault.KindTimeout, c.source, method+" "+url, err)
		}
		return fault.New(fault.KindUpstream, c.source, method+" "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fault.Newf(fault.KindUpstream, c.source, method+" "+url, "%s: %s", resp.Status, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.New(fault.KindParse, c.source, method+" "+url, err)
	}
	return nil
}
