// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// defaultSuffixes are generic location-type words stripped from the tail of a
// detail before comparison: "中关村科技园" and "中关村" describe the same
// place. Sorted longest-first at init so "历史文化街区" wins over "街区".
var defaultSuffixes = []string{
	"历史文化街区", "农业科技园区", "经济技术开发区", "高新技术产业开发区",
	"产业园区", "国家公园", "风景名胜区", "自然保护区", "示范区",
	"工业园区", "文化街区", "开发区", "商业区", "科技园", "公园",
	"校区", "景区", "园区", "街区",
}

var sortSuffixesOnce sync.Once

// RemoveSuffixes strips the longest matching suffix from the given list, or
// from the default location-type list when suffixes is nil. At most one
// suffix is removed.
func RemoveSuffixes(text string, suffixes []string) string {
	if text == "" {
		return text
	}

	if suffixes == nil {
		sortSuffixesOnce.Do(func() {
			sort.Slice(defaultSuffixes, func(i, j int) bool {
				return len(defaultSuffixes[i]) > len(defaultSuffixes[j])
			})
		})
		suffixes = defaultSuffixes
	} else {
		suffixes = append([]string(nil), suffixes...)
		sort.Slice(suffixes, func(i, j int) bool { return len(suffixes[i]) > len(suffixes[j]) })
	}

	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(text, suffix) {
			return strings.TrimSuffix(text, suffix)
		}
	}

	return text
}

// NormalizeDetail canonicalizes text for similarity comparison: full-width
// characters are folded to their half-width forms, everything is lowercased,
// and all whitespace is removed.
func NormalizeDetail(s string) string {
	if s == "" {
		return ""
	}

	s, _, _ = transform.String(width.Fold, s)

	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
