// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package canary

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// normalSamples draws n deterministic pseudo-normal samples.
func normalSamples(seed int64, n int, mean, stdDev float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + stdDev*rng.NormFloat64()
	}
	return out
}

func TestWelchTTest_InsufficientSamples(t *testing.T) {
	_, err := WelchTTest([]float64{1}, []float64{1, 2, 3}, 0.05)
	assert.ErrorIs(t, err, ErrInsufficientSamples)

	_, err = WelchTTest([]float64{1, 2, 3}, nil, 0.05)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestWelchTTest_ZeroVariance(t *testing.T) {
	_, err := WelchTTest([]float64{5, 5, 5}, []float64{5, 5, 5}, 0.05)
	assert.ErrorIs(t, err, ErrZeroVariance)
}

func TestWelchTTest_DetectsClearDifference(t *testing.T) {
	slow := normalSamples(1, 30, 150, 5)
	fast := normalSamples(2, 30, 100, 5)

	result, err := WelchTTest(slow, fast, 0.05)
	require.NoError(t, err)

	assert.True(t, result.Significant)
	assert.Less(t, result.PValue, 0.05)
	assert.Positive(t, result.TStatistic, "first set is the slower one")
	assert.Greater(t, result.Mean1, result.Mean2)
	assert.Greater(t, result.DegreesOfFreedom, 2.0)
}

func TestWelchTTest_SameDistributionNotSignificant(t *testing.T) {
	a := normalSamples(3, 40, 100, 5)
	b := normalSamples(4, 40, 100, 5)

	result, err := WelchTTest(a, b, 0.05)
	require.NoError(t, err)
	assert.False(t, result.Significant)
	assert.GreaterOrEqual(t, result.PValue, 0.05)
}

func TestWelchTTest_UnequalVariances(t *testing.T) {
	// Welch must cope with a noisy group against a tight one.
	noisy := normalSamples(5, 25, 200, 40)
	tight := normalSamples(6, 50, 100, 2)

	result, err := WelchTTest(noisy, tight, 0.05)
	require.NoError(t, err)
	assert.True(t, result.Significant)
	// df is pulled toward the smaller, noisier group.
	assert.Less(t, result.DegreesOfFreedom, 30.0)
}

func TestEffectSize(t *testing.T) {
	t.Run("insufficient", func(t *testing.T) {
		_, err := EffectSize([]float64{1}, []float64{1, 2})
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})

	t.Run("zero variance", func(t *testing.T) {
		_, err := EffectSize([]float64{3, 3, 3}, []float64{3, 3, 3})
		assert.ErrorIs(t, err, ErrZeroVariance)
	})

	t.Run("sign follows order", func(t *testing.T) {
		slow := normalSamples(7, 30, 150, 5)
		fast := normalSamples(8, 30, 100, 5)

		d, err := EffectSize(slow, fast)
		require.NoError(t, err)
		assert.Greater(t, d, 0.8, "a 10-sigma mean shift is a large effect")

		flipped, err := EffectSize(fast, slow)
		require.NoError(t, err)
		assert.InDelta(t, -d, flipped, 1e-9)
	})
}

func TestCalculatePower(t *testing.T) {
	assert.Zero(t, CalculatePower(1, 100, 0.5, 0.05))

	small := CalculatePower(10, 10, 0.5, 0.05)
	large := CalculatePower(200, 200, 0.5, 0.05)
	assert.Greater(t, large, small, "power grows with sample size")
	assert.Greater(t, large, 0.95)

	assert.LessOrEqual(t, CalculatePower(1000, 1000, 2.0, 0.05), 1.0)
}

func TestRequiredSampleSize(t *testing.T) {
	// Cohen's benchmark: d=0.5, alpha=0.05, power=0.8 needs ~64 per group.
	n := RequiredSampleSize(0.5, 0.05, 0.8)
	assert.InDelta(t, 64, n, 3)

	bigger := RequiredSampleSize(0.2, 0.05, 0.8)
	assert.Greater(t, bigger, n, "smaller effects need more samples")

	assert.Equal(t, math.MaxInt32, RequiredSampleSize(0, 0.05, 0.8))
}
