// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider implements the adapters for the external geocoding
// services: Amap, Baidu and Tianditu. Each adapter normalizes the vendor's
// envelope into resolve.Candidate, rotates credentials through keys.Manager,
// and paces outbound calls with a per-provider rate limiter.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/utils/httputils"
)

// DefaultQPS is the request pacing applied to every provider unless
// overridden. The vendors' free tiers allow around three queries per second.
const DefaultQPS = 3

// Options configures a provider adapter.
type Options struct {
	// BaseURL overrides the vendor endpoint, mainly for tests.
	BaseURL string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// QPS overrides the outbound request rate.
	QPS int

	// EnableHTTPTrace dumps requests and responses to stderr.
	EnableHTTPTrace bool
}

// APIError is a vendor-level semantic rejection, already mapped to the key
// failure reason it was reported with.
type APIError struct {
	Provider string
	Code     string
	Message  string
	Reason   keys.FailureReason
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s rejected request: %s (code %s)", e.Provider, e.Message, e.Code)
}

func newHTTPClient(opts *Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}

	var httpLogWriter io.Writer
	if opts.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		MaxConnsPerHost:       4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  opts.EnableHTTPTrace,
		Transport: transport,
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": "geocoding/1.0",
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: headerTransport,
	}
}

// client is the transport shared by the three adapters: key checkout, rate
// pacing, the HTTP round trip, and failure bookkeeping for everything below
// the vendor envelope.
type client struct {
	id         string
	httpClient *http.Client
	keys       *keys.Manager
	limiter    *keys.RateLimiter
}

func newClient(id string, manager *keys.Manager, opts *Options) client {
	if opts == nil {
		opts = &Options{}
	}

	qps := opts.QPS
	if qps == 0 {
		qps = DefaultQPS
	}

	return client{
		id:         id,
		httpClient: newHTTPClient(opts),
		keys:       manager,
		limiter:    keys.NewRateLimiter(qps),
	}
}

// get checks out a key, waits for a rate slot, performs the GET and decodes
// the JSON body into out. Transport and decode failures are reported as
// unclassified key failures; envelope-level rejections are the caller's to
// classify.
func (c *client) get(ctx context.Context, userID int64, endpoint, keyParam string, params url.Values, out any) (string, error) {
	k, err := c.keys.GetNextKey(c.id, userID)
	if err != nil {
		return "", err
	}

	params.Set(keyParam, k.Value)

	if err := c.limiter.Acquire(ctx); err != nil {
		return k.Value, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return k.Value, fmt.Errorf("building %s request: %w", c.id, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reportFailure(k.Value, keys.ReasonOther)

		return k.Value, fmt.Errorf("calling %s: %w", c.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.reportFailure(k.Value, keys.ReasonOther)

		return k.Value, fmt.Errorf("%s returned HTTP %d", c.id, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.reportFailure(k.Value, keys.ReasonOther)

		return k.Value, fmt.Errorf("decoding %s response: %w", c.id, err)
	}

	return k.Value, nil
}

// reject reports a classified vendor rejection and returns it as an APIError.
func (c *client) reject(keyValue, code, message string, reason keys.FailureReason) error {
	c.reportFailure(keyValue, reason)

	return &APIError{Provider: c.id, Code: code, Message: message, Reason: reason}
}

func (c *client) reportFailure(keyValue string, reason keys.FailureReason) {
	_ = c.keys.ReportFailure(keyValue, reason)
}

func (c *client) reportSuccess(keyValue string) {
	_ = c.keys.ReportSuccess(keyValue)
}

// flexString tolerates the empty-array form some vendors use for missing
// string fields ("city": [] on Amap municipalities).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""

		return nil
	}

	*s = flexString(v)

	return nil
}

// flexFloat tolerates numbers quoted as strings ("score": "85" on Tianditu).
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0

		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing number %q: %w", s, err)
	}

	*f = flexFloat(v)

	return nil
}

// parseLngLat splits the "lng,lat" pair format shared by Amap and Tianditu.
func parseLngLat(s string) (lng, lat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed coordinate pair %q", s)
	}

	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed longitude in %q: %w", s, err)
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed latitude in %q: %w", s, err)
	}

	return lng, lat, nil
}
