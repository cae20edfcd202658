package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
)

// Diversity limits for the legacy search-and-scrape pipeline.
const (
	legacyMaxResults      = 3
	legacyMaxPagesPerSite = 2
)

// SelectDiverseURLs picks up to maxResults result links, capping pages per
// domain so the scrape draws from a variety of sources. Invalid URLs are
// skipped. Returns the chosen links and the number of distinct domains.
func SelectDiverseURLs(resp SearchResponse, maxResults int) ([]string, int) {
	var urls []string
	perDomain := map[string]int{}

	for _, result := range resp.Organic {
		link := result.LinkURL()
		if link == "" || len(urls) >= maxResults {
			continue
		}

		parsed, err := url.Parse(link)
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		domain := strings.TrimPrefix(parsed.Hostname(), "www.")

		if perDomain[domain] < legacyMaxPagesPerSite {
			urls = append(urls, link)
			perDomain[domain]++
		}
	}
	return urls, len(perDomain)
}

// LegacyFarmReport runs the standalone search-then-scrape pipeline for a
// coordinate pair: three fixed queries, diversity-limited URL selection, and
// a concurrent scrape with per-URL failure isolation. A query that fails
// entirely is skipped; the report carries whatever succeeded.
func (c *BrightDataClient) LegacyFarmReport(ctx context.Context, lat, lon string) (advisory.RawPayload, error) {
	if c.apiKey == "" || !c.Configured() {
		return nil, fmt.Errorf("%w: api key and both zones are required", ErrMissingCredentials)
	}

	start := time.Now()
	queries := []string{
		fmt.Sprintf("rainfall data %s %s", lat, lon),
		fmt.Sprintf("profitable crops %s %s", lat, lon),
		fmt.Sprintf("soil properties %s %s", lat, lon),
	}

	results := advisory.RawPayload{}
	for _, query := range queries {
		search, err := c.Search(ctx, query)
		if err != nil {
			c.logger.Error("legacy search failed", zap.String("query", query), zap.Error(err))
			continue
		}

		urls, domainCount := SelectDiverseURLs(search, legacyMaxResults)
		c.logger.Info("selected urls for query",
			zap.String("query", query),
			zap.Int("count", len(urls)),
			zap.Int("domains", domainCount))
		if len(urls) == 0 {
			continue
		}

		var sources []map[string]any
		var raw []map[string]any
		for _, page := range c.ScrapeAll(ctx, urls) {
			if page.Err != nil {
				continue
			}
			parsed, _ := url.Parse(page.URL)
			domain := ""
			if parsed != nil {
				domain = strings.TrimPrefix(parsed.Hostname(), "www.")
			}
			sources = append(sources, map[string]any{
				"url":           page.URL,
				"domain":        domain,
				"contentLength": len(page.Content),
			})
			raw = append(raw, map[string]any{
				"url":     page.URL,
				"domain":  domain,
				"content": page.Content,
			})
		}

		queryType := strings.SplitN(query, " ", 2)[0]
		results[queryType] = map[string]any{
			"query":           query,
			"sourcesAnalyzed": len(raw),
			"sources":         sources,
			"rawContent":      raw,
		}
	}

	return advisory.RawPayload{
		"success":       true,
		"location":      map[string]string{"lat": lat, "lon": lon},
		"executionTime": int(time.Since(start).Seconds()),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"results":       results,
	}, nil
}
