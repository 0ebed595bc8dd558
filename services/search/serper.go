// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	defaultSerperEndpoint = "https://google.serper.dev/search"

	// Identical queries inside one conversation are common (retries, the
	// fact-check variant of a popular claim); a short TTL keeps us inside
	// the provider quota without serving stale news for long.
	cacheTTL             = 5 * time.Minute
	cacheCleanupInterval = 10 * time.Minute
)

// SerperClient implements Client against the serper.dev Google Search API.
//
// # Description
//
// Each call POSTs one query and maps the provider's organic results into the
// neutral Result shape. Responses are cached with a short TTL and all
// outbound calls share a token-bucket rate limiter so concurrent
// verification runs cannot exceed the provider quota.
//
// # Thread Safety
//
// Safe for concurrent use. The cache and limiter are both concurrency-safe.
type SerperClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	maxResults int
	limiter    *rate.Limiter
	cache      *gocache.Cache
}

// SerperConfig configures a SerperClient.
type SerperConfig struct {
	// APIKey authenticates against serper.dev. Required.
	APIKey string
	// Endpoint overrides the API URL. Used by tests; empty means production.
	Endpoint string
	// MaxResults caps results per query. Values < 1 default to 4.
	MaxResults int
	// RequestsPerSecond throttles outbound calls. Values <= 0 default to 5.
	RequestsPerSecond float64
}

// NewSerperClient creates a search client for the serper.dev API.
func NewSerperClient(cfg SerperConfig) (*SerperClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serper API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultSerperEndpoint
	}
	maxResults := cfg.MaxResults
	if maxResults < 1 {
		maxResults = 4
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &SerperClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		cache:      gocache.New(cacheTTL, cacheCleanupInterval),
	}, nil
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type serperOrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Source  string `json:"source"`
}

type serperResponse struct {
	Organic []serperOrganicResult `json:"organic"`
}

// Search implements the Client interface.
func (s *SerperClient) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &SearchError{Query: query, Message: "empty query"}
	}

	if cached, found := s.cache.Get(query); found {
		slog.Debug("Search cache hit", "query", query)
		return cached.([]Result), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	payload, err := json.Marshal(serperRequest{Query: query, Num: s.maxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Search provider returned non-OK status",
			"query", query, "status", resp.StatusCode)
		return nil, &SearchError{
			Query:      query,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Organic))
	for _, organic := range parsed.Organic {
		if len(results) >= s.maxResults {
			break
		}
		source := organic.Source
		if source == "" {
			source = hostOf(organic.Link)
		}
		results = append(results, Result{
			Title:   organic.Title,
			Snippet: organic.Snippet,
			Link:    organic.Link,
			Date:    organic.Date,
			Source:  source,
		})
	}

	s.cache.Set(query, results, gocache.DefaultExpiration)
	slog.Debug("Search completed", "query", query, "results", len(results))
	return results, nil
}

// hostOf extracts the registrable host for display when the provider omits
// a source name.
func hostOf(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

var _ Client = (*SerperClient)(nil)
