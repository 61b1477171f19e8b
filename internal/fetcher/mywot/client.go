// MIT License
//
// # Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package mywot fetches reputation metrics from the public MyWOT query API.
package mywot

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
	"golang.org/x/net/html/charset"
)

const (
	DefaultBaseURL = "http://api.mywot.com/0.4/public_query2"
	defaultTimeout = 10 * time.Second
	retryDelay     = 500 * time.Millisecond
	maxBodyBytes   = 1 << 20
)

// Client implements reputation.Fetcher over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *pterm.Logger
	retryDelay time.Duration
	userAgent  string
}

// NewClient creates a Client for the public MyWOT endpoint.
func NewClient(logger *pterm.Logger) *Client {
	return NewClientWithURL(DefaultBaseURL, logger)
}

// NewClientWithURL creates a Client against a custom endpoint.
func NewClientWithURL(baseURL string, logger *pterm.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		retryDelay: retryDelay,
		userAgent:  "wotcache",
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithUserAgent sets the User-Agent header sent with each query.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

type queryResponse struct {
	XMLName      xml.Name      `xml:"query"`
	Target       string        `xml:"target,attr"`
	Applications []application `xml:"application"`
}

type application struct {
	Name       string `xml:"name,attr"`
	Reputation string `xml:"r,attr"`
	Confidence string `xml:"c,attr"`
}

// Fetch queries the API for domain. Categories the API reports but the
// cache does not know are dropped; unparsable values become "not rated".
func (c *Client) Fetch(ctx context.Context, domain string) (reputation.Metrics, error) {
	reqURL, err := c.queryURL(domain)
	if err != nil {
		return nil, err
	}

	c.logger.Trace("MyWOT request", c.logger.Args("domain", domain, "url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mywot: create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.doWithRetry(ctx, req, domain)
	if err != nil {
		return nil, fmt.Errorf("mywot: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mywot: unexpected status %d", resp.StatusCode)
	}

	metrics, err := decode(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	c.logger.Debug("MyWOT response",
		c.logger.Args("domain", domain, "status", resp.StatusCode, "categories", len(metrics)))
	return metrics, nil
}

func (c *Client) queryURL(domain string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("mywot: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("target", domain)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request, domain string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.logger.Warn("MyWOT retry", c.logger.Args("domain", domain, "reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryDelay):
	}

	return c.httpClient.Do(req)
}

func decode(r io.Reader) (reputation.Metrics, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var body queryResponse
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("mywot: decode xml: %w", err)
	}

	metrics := make(reputation.Metrics, len(body.Applications))
	for _, app := range body.Applications {
		n, err := strconv.Atoi(strings.TrimSpace(app.Name))
		if err != nil {
			continue
		}
		category := reputation.Category(n)
		if !category.Valid() {
			continue
		}
		metrics[category] = reputation.Metric{
			Reputation: parseValue(app.Reputation),
			Confidence: parseValue(app.Confidence),
		}
	}
	return metrics, nil
}

func parseValue(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &v
}
