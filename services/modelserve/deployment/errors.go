// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package deployment holds the canary deployment state machine, the
// per-variant latency metrics store, and the admin controller that drives
// transitions across both.
//
// # Concurrency Design
//
// Two independent lock domains, deliberately separate so high-frequency
// latency appends never contend with rare admin transitions:
//
//   - the "state lock" inside State guards deployment configuration
//     (rare writes by admin ops, frequent reads by the router and the
//     health checker)
//   - the "metrics lock" inside LatencyMetrics guards the latency series
//     (a write per routed request, periodic reads by health checks,
//     resets on transitions)
//
// No lock is ever held across a model load or an inference call.
//
// A request may complete routing against a state snapshot that a
// concurrent transition resets a moment later; its latency sample then
// lands in a series that is immediately cleared. That is accepted
// eventual consistency for a monitoring signal. Concurrent admin calls
// are last-writer-wins; there is no operation-level lock across the
// validate/mutate/reset sequence.
package deployment

import "errors"

// Sentinel errors for admin transitions. Both are reported, not fatal:
// the operation returns a structured failure and state is untouched.
var (
	// ErrNoActiveCanary is returned by rollback and promote when no
	// canary is deployed.
	ErrNoActiveCanary = errors.New("no active canary")

	// ErrAlertActive is returned by promote while the health checker's
	// alert flag is set.
	ErrAlertActive = errors.New("cannot promote canary with active alerts")
)
