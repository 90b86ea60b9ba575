// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed fetches citation records from the NCBI E-utilities efetch
// endpoint. One call fetches one batch of PMIDs as a PubmedArticleSet XML
// document; failures are returned to the caller, never retried, except for
// the opt-in HTTP 429 retry configured by RateLimitRetries.
package pubmed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pmid2nct/internal/httputil"
	"github.com/pdiddy/pmid2nct/internal/logging"
	"github.com/pdiddy/pmid2nct/internal/metrics"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

// postThreshold is the batch size above which NCBI asks callers to send
// the ID list as a POST body instead of a query string.
const postThreshold = 200

// Client fetches efetch documents for batches of PMIDs.
type Client struct {
	http   httputil.Doer
	cfg    types.NCBIConfig
	logger zerolog.Logger
}

// NewClient creates an efetch client. The contact email is mandatory; the
// base URL, tool name, and User-Agent fall back to their defaults.
func NewClient(httpClient httputil.Doer, cfg types.NCBIConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, ErrNoContact
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = types.DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = types.DefaultEFetchURL
	}
	if cfg.Tool == "" {
		cfg.Tool = types.DefaultTool
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = types.DefaultUserAgent
	}

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logging.NewLogger("pubmed"),
	}, nil
}

// Fetch requests the PubmedArticleSet for ids and returns the raw document.
// Any transport error or non-200 response is returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, ids []string) ([]byte, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("efetch: empty id list")
	}

	req, err := c.newRequest(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("creating efetch request: %w", err)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.RateLimitRetries)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(ErrorClassNetwork)).Inc()
		c.logger.Error().Err(err).Int("batch_size", len(ids)).Msg("efetch request failed")
		return nil, &FetchError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		metrics.FetchErrors.WithLabelValues(string(class)).Inc()
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Int("batch_size", len(ids)).
			Msg("efetch returned an error status")
		return nil, &FetchError{StatusCode: resp.StatusCode, Class: class, Message: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &FetchError{StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Message: "reading body", Err: err}
	}

	c.logger.Debug().
		Int("batch_size", len(ids)).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("efetch complete")
	return body, nil
}

// newRequest builds a GET for small batches and a form POST above
// postThreshold IDs.
func (c *Client) newRequest(ctx context.Context, ids []string) (*http.Request, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
		"tool":    {c.cfg.Tool},
		"email":   {c.cfg.Email},
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	var (
		req *http.Request
		err error
	)
	if len(ids) > postThreshold {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(params.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/xml")
	return req, nil
}
