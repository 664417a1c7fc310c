// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model provides loading, validation and caching of serialized
// classifier artifacts.
//
// A "model" is treated as an opaque capability: given a feature vector,
// return a class-1 probability in [0,1]. The store memoizes loads by path
// so an artifact is read from disk at most once per process lifetime.
//
// # Thread Safety
//
// Store is safe for concurrent use. Predictor implementations returned by
// the store are immutable after load.
package model

import "errors"

// Sentinel errors for artifact loading.
var (
	// ErrModelNotFound is returned when the referenced artifact path does
	// not exist on disk. Deploy surfaces this as a 404.
	ErrModelNotFound = errors.New("model file not found")

	// ErrModelLoad is returned when the artifact exists but fails to
	// deserialize, or deserializes into something without a probability
	// prediction capability (wrong schema, unknown model type, no
	// coefficients). The underlying cause is wrapped.
	ErrModelLoad = errors.New("model load failed")
)
