// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

// Package address models parsed Chinese administrative addresses and the text
// normalization shared by the confidence engine and the provider adapters.
//
// Real address parsing is an external concern: production deployments plug in
// an NLP-backed Parser. The NaiveParser here is a regex fallback so the CLI
// and server work standalone.
package address

import (
	"regexp"
	"strings"
)

// Parsed holds the administrative components of an address as produced by a
// Parser. Empty fields mean the parser could not determine that level.
type Parsed struct {
	Province string `json:"province"`
	City     string `json:"city"`
	County   string `json:"county"`
	Town     string `json:"town,omitempty"`
	Detail   string `json:"detail"`
}

// Empty reports whether no component was parsed at all.
func (p Parsed) Empty() bool {
	return p.Province == "" && p.City == "" && p.County == "" && p.Town == "" && p.Detail == ""
}

// Parser turns free address text into administrative components.
type Parser interface {
	Parse(text string) (Parsed, error)
}

// Complete joins the parsed components back into a full query string,
// deduplicating repeated administrative fragments ("北京市北京市" -> "北京市",
// a county already present in the detail is not appended again).
func Complete(p Parsed) string {
	var full strings.Builder

	if p.Province == p.City {
		full.WriteString(p.City)
	} else {
		full.WriteString(p.Province)
		full.WriteString(p.City)
	}

	if p.County != "" && !strings.Contains(p.Detail, p.County) {
		full.WriteString(p.County)
	}

	if p.Town != "" && !strings.Contains(p.Detail, p.Town) {
		full.WriteString(p.Town)
	}

	full.WriteString(p.Detail)

	return full.String()
}

// municipalities are province-level cities where province == city.
var municipalities = map[string]bool{
	"北京市": true,
	"上海市": true,
	"天津市": true,
	"重庆市": true,
}

var (
	provinceRe = regexp.MustCompile(`^([\x{4e00}-\x{9fa5}]{2,8}?(?:省|自治区|特别行政区))`)
	cityRe     = regexp.MustCompile(`^([\x{4e00}-\x{9fa5}]{2,8}?(?:市|自治州|地区|盟))`)
	countyRe   = regexp.MustCompile(`^([\x{4e00}-\x{9fa5}]{1,8}?(?:区|县|旗|市))`)
)

// NaiveParser is a best-effort structural parser: it peels province, city and
// county prefixes off the text and treats the remainder as the detail. It
// knows the four municipalities but has no gazetteer, so it cannot complete
// missing levels the way an NLP parser would.
type NaiveParser struct{}

// Parse implements Parser. It never fails; unparseable text becomes Detail.
func (NaiveParser) Parse(text string) (Parsed, error) {
	rest := strings.TrimSpace(text)

	var p Parsed

	if m := provinceRe.FindString(rest); m != "" {
		p.Province = m
		rest = rest[len(m):]
	} else if m := cityRe.FindString(rest); m != "" && municipalities[m] {
		p.Province = m
		rest = rest[len(m):]
	}

	if municipalities[p.Province] {
		p.City = p.Province
	} else if m := cityRe.FindString(rest); m != "" {
		p.City = m
		rest = rest[len(m):]
	}

	if m := countyRe.FindString(rest); m != "" {
		p.County = m
		rest = rest[len(m):]
	}

	p.Detail = rest

	return p, nil
}
