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
	"time"
)

// State is the process-wide deployment configuration.
//
// Description:
//
//	State tracks which artifact paths occupy the stable and canary slots,
//	when the canary was activated, whether the health checker has raised
//	an alert, and the slowdown simulation flag. It is created once at
//	process start and lives for the process lifetime; transitions reset
//	its contents but never replace the instance.
//
// Invariants (maintained by every method):
//   - canaryPath == "" exactly when no canary is active
//   - alertTriggered is false whenever canaryPath == ""
//
// # State Machine
//
//	Idle --Deploy--> CanaryActive --Rollback--> Idle
//	                 CanaryActive --Promote---> Idle (stable path swapped)
//
// # Thread Safety
//
// Safe for concurrent use. All fields are guarded by one mutex (the
// "state lock"); every transition is a single critical section.
type State struct {
	mu sync.Mutex

	stablePath       string
	canaryPath       string
	canaryStartTime  time.Time
	deploymentID     string
	alertTriggered   bool
	simulateSlowdown bool
}

// Snapshot is a consistent read-only copy of the deployment state.
type Snapshot struct {
	StablePath       string
	CanaryPath       string
	CanaryStartTime  time.Time
	DeploymentID     string
	CanaryActive     bool
	AlertTriggered   bool
	SimulateSlowdown bool
}

// NewState creates the initial Idle state serving all traffic from
// stablePath.
func NewState(stablePath string) *State {
	return &State{stablePath: stablePath}
}

// StablePath returns the artifact path of the stable slot.
func (s *State) StablePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stablePath
}

// CanaryPath returns the artifact path of the canary slot, or "" when no
// canary is active.
func (s *State) CanaryPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canaryPath
}

// CanaryActive is the single source of truth for "is a canary deployed".
// It is derived solely from the canary path.
func (s *State) CanaryActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canaryPath != ""
}

// AlertTriggered reports the health checker's current alert flag.
func (s *State) AlertTriggered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alertTriggered
}

// SetAlert records the health checker's verdict. The flag is pinned to
// false while no canary is active, preserving the state invariant even
// if a health check races a rollback.
func (s *State) SetAlert(triggered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canaryPath == "" {
		s.alertTriggered = false
		return
	}
	s.alertTriggered = triggered
}

// SimulateSlowdown reports the artificial canary slowdown flag.
func (s *State) SimulateSlowdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulateSlowdown
}

// ToggleSlowdown flips the slowdown flag and returns the new value.
// Independent of canary activity; always succeeds.
func (s *State) ToggleSlowdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateSlowdown = !s.simulateSlowdown
	return s.simulateSlowdown
}

// Snapshot returns a consistent copy of the whole state for the status
// endpoint and for logging.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		StablePath:       s.stablePath,
		CanaryPath:       s.canaryPath,
		CanaryStartTime:  s.canaryStartTime,
		DeploymentID:     s.deploymentID,
		CanaryActive:     s.canaryPath != "",
		AlertTriggered:   s.alertTriggered,
		SimulateSlowdown: s.simulateSlowdown,
	}
}

// =============================================================================
// Transitions
// =============================================================================

// ActivateCanary enters CanaryActive: records the canary path, its
// activation time and deployment id, and clears any previous alert.
// Artifact validation is the caller's responsibility and must happen
// before this is called (no partial deploys).
func (s *State) ActivateCanary(path, deploymentID string, startTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canaryPath = path
	s.canaryStartTime = startTime
	s.deploymentID = deploymentID
	s.alertTriggered = false
}

// RollbackCanary returns to Idle, clearing all canary fields and the
// alert flag. Returns ErrNoActiveCanary when nothing is deployed.
func (s *State) RollbackCanary() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canaryPath == "" {
		return ErrNoActiveCanary
	}
	s.clearCanaryLocked()
	return nil
}

// PromoteCanary swaps the canary into the stable slot and returns to
// Idle. Fails with ErrNoActiveCanary or ErrAlertActive without touching
// state; the precondition check and the swap are one critical section so
// a concurrent alert write cannot slip between them.
//
// Returns the previous and new stable artifact paths.
func (s *State) PromoteCanary() (previousStable, newStable string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canaryPath == "" {
		return "", "", ErrNoActiveCanary
	}
	if s.alertTriggered {
		return "", "", ErrAlertActive
	}

	previousStable = s.stablePath
	newStable = s.canaryPath
	s.stablePath = s.canaryPath
	s.clearCanaryLocked()
	return previousStable, newStable, nil
}

// clearCanaryLocked resets every canary-scoped field. Callers hold mu.
func (s *State) clearCanaryLocked() {
	s.canaryPath = ""
	s.canaryStartTime = time.Time{}
	s.deploymentID = ""
	s.alertTriggered = false
}
