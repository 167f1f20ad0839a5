// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import "errors"

// Per-provider failures are absorbed by the cascade and logged; only total
// exhaustion is surfaced, and even that as a sentinel result rather than an
// error to the batch caller.
var (
	// ErrNoCandidates means a provider answered successfully with zero
	// results. The cascade skips it.
	ErrNoCandidates = errors.New("no candidates")

	// ErrAllProvidersExhausted means no provider produced anything usable.
	ErrAllProvidersExhausted = errors.New("all geocoding providers exhausted")
)
