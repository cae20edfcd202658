package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
)

// PlaceholderPayload is what search calls resolve to when the routing zones
// are not configured. Degrading to it is policy, not an error: downstream
// derivations substitute their hard-coded defaults.
var PlaceholderPayload = advisory.RawPayload{
	"result": "No Bright Data zones configured, using placeholder data.",
}

// PageResult is one URL's outcome in a multi-page fan-out. Failures are
// isolated per URL; Err is set instead of aborting siblings.
type PageResult struct {
	URL     string
	Content string
	Err     error
}

// SearchResult is one organic search hit. Providers disagree on the link
// field name, hence the three candidates.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	URL     string `json:"url"`
	Href    string `json:"href"`
	Snippet string `json:"snippet"`
}

// LinkURL returns the first populated link field.
func (r SearchResult) LinkURL() string {
	if r.Link != "" {
		return r.Link
	}
	if r.URL != "" {
		return r.URL
	}
	return r.Href
}

// SearchResponse is a parsed SERP payload.
type SearchResponse struct {
	Organic []SearchResult `json:"organic"`
}

// BrightDataClient wraps the search/unlock content-retrieval API. Requests
// are proxied through the provider's request endpoint with a routing zone:
// one zone for SERP queries, another for unlocker page fetches.
type BrightDataClient struct {
	apiKey       string
	serpZone     string
	unlockerZone string
	endpoint     string
	client       *http.Client
	circuit      *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

func NewBrightDataClient(client *http.Client, apiKey, serpZone, unlockerZone string, logger *zap.Logger) *BrightDataClient {
	return &BrightDataClient{
		apiKey:       apiKey,
		serpZone:     serpZone,
		unlockerZone: unlockerZone,
		endpoint:     "https://api.brightdata.com/request",
		client:       client,
		circuit:      newBreaker("brightdata"),
		logger:       logger,
	}
}

// Configured reports whether both routing zones are present.
func (c *BrightDataClient) Configured() bool {
	return c.serpZone != "" && c.unlockerZone != ""
}

type requestBody struct {
	Zone       string `json:"zone"`
	URL        string `json:"url"`
	Format     string `json:"format"`
	DataFormat string `json:"data_format,omitempty"`
}

func (c *BrightDataClient) post(ctx context.Context, body requestBody) ([]byte, error) {
	return doRequest(ctx, c.client, c.circuit, "brightdata", func() (*http.Request, error) {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// SearchContent runs a SERP query and returns the provider's JSON payload.
// With either zone unset it returns PlaceholderPayload immediately, with no
// network attempted.
func (c *BrightDataClient) SearchContent(ctx context.Context, query string) (advisory.RawPayload, error) {
	if !c.Configured() {
		c.logger.Info("search zones not configured, returning placeholder payload",
			zap.String("query", query))
		return PlaceholderPayload, nil
	}

	searchURL := fmt.Sprintf("https://www.google.com/search?q=%s&brd_json=1", url.QueryEscape(query))
	body, err := c.post(ctx, requestBody{Zone: c.serpZone, URL: searchURL, Format: "raw"})
	if err != nil {
		return nil, err
	}

	var payload advisory.RawPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding search payload: %w", err)
	}
	return payload, nil
}

// Search runs a SERP query and parses the organic results.
func (c *BrightDataClient) Search(ctx context.Context, query string) (SearchResponse, error) {
	payload, err := c.SearchContent(ctx, query)
	if err != nil {
		return SearchResponse{}, err
	}

	// Round-trip through JSON to pick out the organic hits.
	raw, err := json.Marshal(payload)
	if err != nil {
		return SearchResponse{}, err
	}
	var parsed SearchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return SearchResponse{}, fmt.Errorf("decoding search results: %w", err)
	}
	return parsed, nil
}

// PageContent fetches one page through the unlocker zone and returns the raw
// HTML/text body.
func (c *BrightDataClient) PageContent(ctx context.Context, pageURL string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: unlocker zone not set", ErrMissingCredentials)
	}

	body, err := c.post(ctx, requestBody{
		Zone:       c.unlockerZone,
		URL:        pageURL,
		Format:     "raw",
		DataFormat: "html",
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ScrapeAll fetches every URL concurrently. Each failure is isolated: one
// URL's error never cancels its siblings, and the caller receives an outcome
// for every URL attempted, in input order.
func (c *BrightDataClient) ScrapeAll(ctx context.Context, urls []string) []PageResult {
	results := make([]PageResult, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		i, u := i, u
		wg.Add(1)
		go func() {
			defer wg.Done()

			content, err := c.PageContent(ctx, u)
			if err != nil {
				c.logger.Warn("page fetch failed", zap.String("url", u), zap.Error(err))
			}
			results[i] = PageResult{URL: u, Content: content, Err: err}
		}()
	}
	wg.Wait()

	return results
}
