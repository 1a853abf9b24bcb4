package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"agentkit/internal/config"
	"agentkit/internal/logging"
)

const (
	ingestionPath = "/api/public/ingestion"
	tracesPath    = "/api/public/traces"
	pageLimit     = 50
)

// Client talks to the Langfuse public API.
type Client struct {
	baseURL    string
	publicKey  string
	secretKey  string
	timeout    time.Duration
	httpClient *http.Client
	now        func() time.Time

	wg sync.WaitGroup
}

// NewClient creates a client from config. It does not check Enabled.
func NewClient(cfg config.TelemetryConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		publicKey:  cfg.PublicKey,
		secretKey:  cfg.SecretKey,
		timeout:    cfg.GetTimeout(),
		httpClient: &http.Client{},
		now:        time.Now,
	}
}

// Event posts an event-create in the background.
func (c *Client) Event(traceID, name string, metadata map[string]any) {
	c.post(NewEvent(traceID, name, metadata, c.now()))
}

// Score posts a numeric score-create in the background.
func (c *Client) Score(traceID, name string, value float64) {
	c.post(NewScore(traceID, name, value, Numeric, "", c.now()))
}

// post submits ev on a detached goroutine bounded by the client timeout.
func (c *Client) post(ev IngestionEvent) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.Ingest(ctx, ev); err != nil {
			logging.Telemetry("post %s failed: %v", ev.Type, err)
		}
	}()
}

// Drain blocks until background posts finish or ctx ends.
func (c *Client) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ingest posts events synchronously as one batch.
func (c *Client) Ingest(ctx context.Context, events ...IngestionEvent) error {
	if len(events) == 0 {
		return nil
	}
	body, err := json.Marshal(Batch{Batch: events})
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ingestionPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.publicKey, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ingestion request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ingestion returned %s", resp.Status)
	}
	return nil
}

// tracePage is one page of GET /api/public/traces.
type tracePage struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Meta struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"meta"`
}

// ListTraceIDs returns the ids of traces newer than from, following pages.
func (c *Client) ListTraceIDs(ctx context.Context, from time.Time) ([]string, error) {
	var ids []string
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("fromTimestamp", from.UTC().Format(time.RFC3339))
		q.Set("page", fmt.Sprint(page))
		q.Set("limit", fmt.Sprint(pageLimit))

		var p tracePage
		if err := c.getJSON(ctx, tracesPath+"?"+q.Encode(), &p); err != nil {
			return nil, err
		}
		for _, d := range p.Data {
			ids = append(ids, d.ID)
		}
		if len(p.Data) == 0 || page >= p.Meta.TotalPages {
			return ids, nil
		}
	}
}

// GetTrace returns the raw trace document including observations and
// scores.
func (c *Client) GetTrace(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, tracesPath+"/"+url.PathEscape(id), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.publicKey, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s returned %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
