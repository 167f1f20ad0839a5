// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolve arbitrates between third-party geocoding providers: it runs
// the provider cascade, scores every candidate for trustworthiness, and picks
// a single deterministic winner per query.
package resolve

import (
	"context"
	"strings"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/spatial"
)

// Mode selects the scoring strategy family for a comparison.
type Mode int

const (
	// ModeGeocoding compares the query's detail fragment against the
	// candidate's formatted address.
	ModeGeocoding Mode = iota
	// ModePOI casts a wider net over name and address, full text and detail.
	ModePOI
)

// Strategy is how a candidate's confidence was derived.
type Strategy string

const (
	// StrategyTextSimilarity scores by containment-aware edit distance.
	StrategyTextSimilarity Strategy = "text_similarity"
	// StrategyNativeScore normalizes the provider's own relevance metrics.
	StrategyNativeScore Strategy = "native_score"
)

// Query is one address resolution request. It is immutable once built: the
// external address parser fills Admin and CompletedText before the cascade
// starts, and a parse failure leaves them empty, which degrades the
// administrative filter to always-pass.
type Query struct {
	RawText       string         `json:"raw_text"`
	Admin         address.Parsed `json:"admin"`
	CompletedText string         `json:"completed_text"`
	UserID        int64          `json:"user_id,omitempty"`
}

// Text returns the completed address when available, else the raw text.
func (q Query) Text() string {
	if q.CompletedText != "" {
		return q.CompletedText
	}

	return q.RawText
}

// Candidate is one provider's proposed location, normalized to the common
// shape. Adapters fill whichever coordinate pair the vendor speaks natively;
// post-processing derives the other so both are present on the way out.
type Candidate struct {
	Provider         string         `json:"provider"`
	Name             string         `json:"name,omitempty"`
	FormattedAddress string         `json:"formatted_address"`
	Province         string         `json:"province"`
	City             string         `json:"city"`
	District         string         `json:"district"`
	GCJ02            *spatial.Point `json:"gcj02,omitempty"`
	WGS84            *spatial.Point `json:"wgs84,omitempty"`
	NativeScores     []float64      `json:"-"`
	Strategy         Strategy       `json:"strategy"`
}

// ScoredCandidate is a Candidate with its computed confidence. Confidence 0
// means administratively filtered out, not unscored.
type ScoredCandidate struct {
	Candidate
	Confidence float64 `json:"confidence"`
}

// FailedAddress is the sentinel formatted address of a resolution that found
// nothing usable, so batch consumers can render partial failures inline.
const FailedAddress = "-"

// ResolutionResult is the outcome of one query: the winner plus every scored
// candidate that any provider surfaced. Never mutated after return.
type ResolutionResult struct {
	Winner     ScoredCandidate   `json:"winner"`
	Candidates []ScoredCandidate `json:"candidates"`
}

// Failed reports whether the cascade exhausted every provider without any
// usable candidate.
func (r *ResolutionResult) Failed() bool {
	return r.Winner.Provider == "" && r.Winner.FormattedAddress == FailedAddress
}

// Enriched reports whether the winner was enhanced by deferred reverse
// geocoding.
func (r *ResolutionResult) Enriched() bool {
	return strings.HasSuffix(r.Winner.Provider, EnrichedSuffix)
}

// ReverseResult is a reverse-geocode lookup outcome.
type ReverseResult struct {
	FormattedAddress string `json:"formatted_address"`
	Province         string `json:"province"`
	City             string `json:"city"`
	District         string `json:"district"`
}

// Geocoder is one external provider. Implementations normalize the vendor's
// envelope, handle key rotation and pacing internally, and report 0..N
// candidates; for plain geocoding at most one candidate may surface upward.
type Geocoder interface {
	// ID is the stable provider identifier used in priority ordering and
	// winner attribution.
	ID() string
	// Geocode resolves an address into candidates.
	Geocode(ctx context.Context, q Query) ([]Candidate, error)
	// ReverseGeocode turns a WGS84 point back into address components.
	ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseResult, error)
	// SearchPOI finds points of interest by keyword.
	SearchPOI(ctx context.Context, q Query) ([]Candidate, error)
}
