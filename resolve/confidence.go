// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/cppypanda/geocoding/address"
)

// Scorer computes a confidence in [0,1] for a candidate against a query.
//
// The pipeline is a hard administrative filter followed by either the
// provider's normalized native score or containment-aware text similarity.
// Cross-jurisdiction name collisions are the dominant false-positive source,
// so any non-empty province/city/district mismatch zeroes the candidate
// outright no matter how similar the text is.
type Scorer struct {
	parser address.Parser
}

// NewScorer creates a Scorer that re-parses candidate addresses with parser
// to isolate their detail fragment.
func NewScorer(parser address.Parser) *Scorer {
	if parser == nil {
		parser = address.NaiveParser{}
	}

	return &Scorer{parser: parser}
}

// Score rates one candidate. Zero means administratively filtered out; 0.5 is
// the neutral score when no dimension is comparable at all.
func (s *Scorer) Score(q Query, c Candidate, mode Mode) float64 {
	if !adminMatch(q.Admin, c) {
		return 0
	}

	if c.Strategy == StrategyNativeScore {
		return nativeScore(c.NativeScores)
	}

	sourceDetail := normalize(q.Admin.Detail)
	sourceFull := normalize(q.Text())

	var confidences []float64

	switch mode {
	case ModePOI:
		if name := strings.TrimSpace(c.Name); name != "" {
			confidences = append(confidences, similarity(sourceFull, normalize(name)))

			if d := s.candidateDetail(name); d != "" {
				confidences = append(confidences, similarity(sourceDetail, d))
			}
		}

		if addr := strings.TrimSpace(c.FormattedAddress); addr != "" {
			confidences = append(confidences, similarity(sourceFull, normalize(addr)))

			if d := s.candidateDetail(addr); d != "" {
				confidences = append(confidences, similarity(sourceDetail, d))
			}
		}
	default: // ModeGeocoding
		if addr := strings.TrimSpace(c.FormattedAddress); addr != "" {
			confidences = append(confidences, similarity(sourceDetail, s.candidateDetail(addr)))
		}
	}

	if len(confidences) == 0 {
		return 0.5
	}

	best := confidences[0]
	for _, c := range confidences[1:] {
		if c > best {
			best = c
		}
	}

	return best
}

// candidateDetail re-parses a candidate's text and returns its normalized
// detail fragment. A parse failure degrades to the whole text.
func (s *Scorer) candidateDetail(text string) string {
	detail := text

	if parsed, err := s.parser.Parse(text); err == nil {
		detail = parsed.Detail
	}

	return normalize(detail)
}

func normalize(text string) string {
	return address.NormalizeDetail(address.RemoveSuffixes(text, nil))
}

// adminMatch compares administrative fields pairwise; a mismatch counts only
// when both sides carry the field.
func adminMatch(admin address.Parsed, c Candidate) bool {
	pairs := [][2]string{
		{admin.Province, c.Province},
		{admin.City, c.City},
		{admin.County, c.District},
	}

	for _, p := range pairs {
		q, cand := strings.TrimSpace(p[0]), strings.TrimSpace(p[1])
		if q != "" && cand != "" && q != cand {
			return false
		}
	}

	return true
}

// nativeScore averages the provider's 0..100 metrics down to [0,1].
func nativeScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}

	v := sum / float64(len(scores)) / 100

	return min(max(v, 0), 1)
}

// similarity is the containment-aware edit-distance score. Containment of one
// string in the other signals a much stronger match than character-level edit
// distance alone, so contained pairs score through ratio-tiered formulas; the
// boost never lowers the base similarity.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}

	if a == "" || b == "" {
		return 0.5
	}

	base := editRatio(a, b)

	aLen := float64(len([]rune(a)))
	bLen := float64(len([]rune(b)))

	switch {
	case strings.Contains(b, a):
		// Query inside candidate, like a place name inside a shop named
		// after it.
		r := aLen / bLen

		switch {
		case r >= 0.8:
			return max(base, 0.95+r*0.05)
		case r >= 0.5:
			return max(base, 0.90+r*0.10)
		default:
			return max(base, 0.80+r*0.20)
		}
	case strings.Contains(a, b):
		// Candidate inside query. A short generic candidate name occurring
		// in a long query is weaker evidence, so the tiers are conservative.
		r := bLen / aLen

		switch {
		case bLen >= 4 && r >= 0.3:
			return max(base, 0.75+r*0.20)
		case bLen >= 3 && r >= 0.2:
			return max(base, 0.65+r*0.20)
		default:
			return max(base, 0.50+r*0.25)
		}
	default:
		return base
	}
}

func editRatio(a, b string) float64 {
	dist := levenshtein.ComputeDistance(a, b)

	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}

	return 1.0 - float64(dist)/float64(longest)
}
