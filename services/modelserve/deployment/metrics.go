// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deployment

import (
	"sync"

	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
)

// LatencyMetrics accumulates observed request latencies per variant.
//
// Description:
//
//	Series are append-only between resets and are reset together whenever
//	the deployment state transitions (deploy, rollback, promote), so the
//	health checker never compares samples that straddle a transition.
//	Values are milliseconds.
//
// # Thread Safety
//
// Safe for concurrent use. Guarded by its own mutex (the "metrics lock"),
// independent of the state lock.
type LatencyMetrics struct {
	mu     sync.Mutex
	stable []float64
	canary []float64
}

// NewLatencyMetrics creates an empty metrics store.
func NewLatencyMetrics() *LatencyMetrics {
	return &LatencyMetrics{}
}

// Append records one latency sample for the given variant. Samples for
// unknown variants are dropped; the two slots are the only series kept.
func (m *LatencyMetrics) Append(variant datatypes.ModelVariant, latencyMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch variant {
	case datatypes.VariantStable:
		m.stable = append(m.stable, latencyMs)
	case datatypes.VariantCanary:
		m.canary = append(m.canary, latencyMs)
	}
}

// Samples returns a copy of the series for the given variant.
func (m *LatencyMetrics) Samples(variant datatypes.ModelVariant) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var src []float64
	switch variant {
	case datatypes.VariantStable:
		src = m.stable
	case datatypes.VariantCanary:
		src = m.canary
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// Counts reports both series lengths in one critical section.
func (m *LatencyMetrics) Counts() (stable, canary int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stable), len(m.canary)
}

// Reset clears both series together.
func (m *LatencyMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stable = nil
	m.canary = nil
}
