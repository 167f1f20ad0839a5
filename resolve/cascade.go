// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"log"
	"sync"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/spatial"
)

// DefaultThreshold is the confidence at which a candidate is accepted without
// consulting further providers.
const DefaultThreshold = 0.9

// EnrichedSuffix tags the winner's provider id after a successful deferred
// reverse geocode.
const EnrichedSuffix = "_re-geocoded"

// Resolver runs the provider cascade. Providers are tried strictly in the
// given priority order; the first candidate crossing the threshold wins
// immediately and later providers are never called. Short-circuiting is a
// cost and correctness decision, not an optimization: later providers are the
// less reliable ones.
type Resolver struct {
	geocoders  []Geocoder
	scorer     *Scorer
	threshold  float64
	detailPoor map[string]bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithThreshold overrides the acceptance threshold.
func WithThreshold(t float64) ResolverOption {
	return func(r *Resolver) { r.threshold = t }
}

// WithDetailPoor overrides the set of providers whose geocoding answers carry
// weak native address detail and therefore get a deferred reverse geocode.
func WithDetailPoor(ids ...string) ResolverOption {
	return func(r *Resolver) {
		r.detailPoor = make(map[string]bool, len(ids))
		for _, id := range ids {
			r.detailPoor[id] = true
		}
	}
}

// NewResolver creates a Resolver over geocoders in priority order.
func NewResolver(scorer *Scorer, geocoders []Geocoder, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		geocoders: geocoders,
		scorer:    scorer,
		threshold: DefaultThreshold,
		detailPoor: map[string]bool{
			"baidu":    true,
			"tianditu": true,
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve runs the cascade for one query. It always returns a result: total
// exhaustion yields a sentinel winner with zero confidence rather than an
// error, so batch callers can render partial failures inline.
func (r *Resolver) Resolve(ctx context.Context, q Query) *ResolutionResult {
	var all []ScoredCandidate

	for _, g := range r.geocoders {
		if err := ctx.Err(); err != nil {
			break
		}

		cands, err := g.Geocode(ctx, q)
		if err != nil {
			log.Printf("geocode %q via %s: %v", q.Text(), g.ID(), err)

			continue
		}

		accepted := false

		var winner ScoredCandidate

		for _, c := range cands {
			sc := ScoredCandidate{Candidate: c, Confidence: r.scorer.Score(q, c, ModeGeocoding)}
			all = append(all, sc)

			if !accepted && sc.Confidence >= r.threshold {
				winner = sc
				accepted = true
			}
		}

		if accepted {
			log.Printf("geocode %q: %s met threshold with %.2f", q.Text(), g.ID(), winner.Confidence)

			return r.finish(ctx, winner, all, q.Admin)
		}
	}

	if len(all) == 0 {
		log.Printf("geocode %q: %v", q.Text(), ErrAllProvidersExhausted)

		return &ResolutionResult{
			Winner: ScoredCandidate{Candidate: Candidate{FormattedAddress: FailedAddress}},
		}
	}

	// No provider met the threshold. Take the global best; on a tie the
	// earlier provider wins because the scan preserves priority order.
	best := all[0]
	for _, sc := range all[1:] {
		if sc.Confidence > best.Confidence {
			best = sc
		}
	}

	log.Printf("geocode %q: no provider met threshold, falling back to %s at %.2f",
		q.Text(), best.Provider, best.Confidence)

	return r.finish(ctx, best, all, q.Admin)
}

// ResolveBatch resolves queries in parallel, one independent cascade per
// query. Parallelism is bounded only by the per-provider rate limiters.
// done, when non-nil, is called once per finished query from the resolving
// goroutine, so implementations must be safe for concurrent use.
func (r *Resolver) ResolveBatch(ctx context.Context, qs []Query, done func(*ResolutionResult)) []*ResolutionResult {
	results := make([]*ResolutionResult, len(qs))

	var wg sync.WaitGroup

	for i, q := range qs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = r.Resolve(ctx, q)

			if done != nil {
				done(results[i])
			}
		}()
	}

	wg.Wait()

	return results
}

func (r *Resolver) finish(ctx context.Context, winner ScoredCandidate, all []ScoredCandidate, admin address.Parsed) *ResolutionResult {
	r.postProcess(ctx, &winner, admin)

	return &ResolutionResult{Winner: winner, Candidates: all}
}

// postProcess completes the missing coordinate pair, unifies administrative
// fields with the parser's authoritative values, and runs the deferred
// reverse geocode for detail-poor providers.
func (r *Resolver) postProcess(ctx context.Context, winner *ScoredCandidate, admin address.Parsed) {
	completeCoordinates(&winner.Candidate)
	applyAdmin(&winner.Candidate, admin)

	if !r.detailPoor[winner.Provider] || winner.WGS84 == nil {
		return
	}

	g := r.geocoderByID(winner.Provider)
	if g == nil {
		return
	}

	rev, err := g.ReverseGeocode(ctx, winner.WGS84.Lat, winner.WGS84.Lng)
	if err != nil {
		// Best-effort enhancement: the sparse winner stands.
		log.Printf("deferred reverse geocode via %s: %v", winner.Provider, err)

		return
	}

	if rev.FormattedAddress != "" {
		winner.FormattedAddress = rev.FormattedAddress
	}

	if rev.Province != "" && winner.Province == "" {
		winner.Province = rev.Province
	}

	if rev.City != "" && winner.City == "" {
		winner.City = rev.City
	}

	if rev.District != "" && admin.County == "" {
		winner.District = rev.District
	}

	// Parser-known fields always beat the reverse geocode's own values.
	applyAdmin(&winner.Candidate, admin)

	winner.Provider += EnrichedSuffix
}

func (r *Resolver) geocoderByID(id string) Geocoder {
	for _, g := range r.geocoders {
		if g.ID() == id {
			return g
		}
	}

	return nil
}

// completeCoordinates derives whichever pair the provider did not supply.
func completeCoordinates(c *Candidate) {
	switch {
	case c.WGS84 == nil && c.GCJ02 != nil:
		lng, lat := spatial.GCJ02ToWGS84(c.GCJ02.Lng, c.GCJ02.Lat)
		c.WGS84 = &spatial.Point{Lat: lat, Lng: lng}
	case c.GCJ02 == nil && c.WGS84 != nil:
		lng, lat := spatial.WGS84ToGCJ02(c.WGS84.Lng, c.WGS84.Lat)
		c.GCJ02 = &spatial.Point{Lat: lat, Lng: lng}
	}
}

// applyAdmin overrides the candidate's administrative fields with the
// parser's values where the parser knows them.
func applyAdmin(c *Candidate, admin address.Parsed) {
	if admin.Province != "" {
		c.Province = admin.Province
	}

	if admin.City != "" {
		c.City = admin.City
	}

	if admin.County != "" {
		c.District = admin.County
	}
}
