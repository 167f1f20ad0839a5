// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"log"
	"sort"

	"github.com/uber/h3-go/v4"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/spatial"
)

// dedupeResolution is the H3 resolution used to decide that two POIs from
// different providers are the same place: res 10 cells are ~70m across.
const dedupeResolution = 10

// dedupeRadius catches same-named places straddling a cell boundary, in
// meters.
const dedupeRadius = 100.0

// SearchPOI queries every provider for the keyword, scores all candidates in
// POI mode, and collates them into one deduplicated, confidence-descending
// list. Provider failures are absorbed; an empty list means nobody matched.
func (r *Resolver) SearchPOI(ctx context.Context, q Query) []ScoredCandidate {
	var all []ScoredCandidate

	for _, g := range r.geocoders {
		if err := ctx.Err(); err != nil {
			break
		}

		cands, err := g.SearchPOI(ctx, q)
		if err != nil {
			log.Printf("poi search %q via %s: %v", q.Text(), g.ID(), err)

			continue
		}

		for _, c := range cands {
			completeCoordinates(&c)
			all = append(all, ScoredCandidate{
				Candidate:  c,
				Confidence: r.scorer.Score(q, c, ModePOI),
			})
		}
	}

	return Collate(all)
}

// Collate sorts scored candidates by confidence, best first, and drops
// near-duplicates: candidates with the same normalized name falling into the
// same H3 cell or within dedupeRadius of an already kept one. Ties keep
// provider order, so the stable sort plus first-seen dedupe favor the
// higher-priority provider.
func Collate(cands []ScoredCandidate) []ScoredCandidate {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Confidence > cands[j].Confidence
	})

	type place struct {
		cell    h3.Cell
		hasCell bool
		point   *spatial.Point
	}

	seen := make(map[string][]place, len(cands))
	out := cands[:0]

	for _, sc := range cands {
		if sc.WGS84 == nil {
			out = append(out, sc)

			continue
		}

		p := place{point: sc.WGS84}
		if cell, err := h3.LatLngToCell(h3.NewLatLng(sc.WGS84.Lat, sc.WGS84.Lng), dedupeResolution); err == nil {
			p.cell, p.hasCell = cell, true
		}

		name := address.NormalizeDetail(sc.Name)

		dup := false

		for _, kept := range seen[name] {
			if kept.hasCell && p.hasCell && kept.cell == p.cell {
				dup = true

				break
			}

			if kept.point.HaversineDistance(sc.WGS84) < dedupeRadius {
				dup = true

				break
			}
		}

		if dup {
			continue
		}

		seen[name] = append(seen[name], p)

		out = append(out, sc)
	}

	return out
}
