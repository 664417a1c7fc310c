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
	"errors"
	"math"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInsufficientSamples indicates not enough samples for analysis.
	ErrInsufficientSamples = errors.New("insufficient samples for statistical analysis")

	// ErrZeroVariance indicates both sample sets have zero variance.
	ErrZeroVariance = errors.New("sample sets have zero variance")
)

// -----------------------------------------------------------------------------
// Statistical Analysis
// -----------------------------------------------------------------------------

// TTestResult holds the results of a t-test over latency samples.
type TTestResult struct {
	// TStatistic is the computed t-statistic.
	TStatistic float64

	// PValue is the two-tailed p-value.
	PValue float64

	// DegreesOfFreedom is the Welch-Satterthwaite df.
	DegreesOfFreedom float64

	// Significant is true if PValue < significance level.
	Significant bool

	// SignificanceLevel is the alpha used (e.g., 0.05).
	SignificanceLevel float64

	// Mean1 and Mean2 are the sample means, in the order the samples
	// were passed.
	Mean1 float64
	Mean2 float64
}

// WelchTTest performs Welch's t-test for two latency sample sets.
//
// Description:
//
//	Welch's t-test is used when the two samples may have unequal
//	variances. It does not assume equal population variances, making it
//	more robust than Student's t-test. Samples are latency values in
//	milliseconds.
//
// Inputs:
//   - samples1: First sample set. Must have at least 2 samples.
//   - samples2: Second sample set. Must have at least 2 samples.
//   - alpha: Significance level (e.g., 0.05 for 95% confidence).
//
// Outputs:
//   - *TTestResult: Test results with t-statistic, p-value, and significance.
//   - error: Non-nil if samples are insufficient or have no variance.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func WelchTTest(samples1, samples2 []float64, alpha float64) (*TTestResult, error) {
	if len(samples1) < 2 || len(samples2) < 2 {
		return nil, ErrInsufficientSamples
	}

	mean1 := mean(samples1)
	mean2 := mean(samples2)

	var1 := sampleVariance(samples1, mean1)
	var2 := sampleVariance(samples2, mean2)

	n1 := float64(len(samples1))
	n2 := float64(len(samples2))

	// Standard error
	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		return nil, ErrZeroVariance
	}

	// t-statistic
	tStat := (mean1 - mean2) / se

	// Degrees of freedom (Welch-Satterthwaite equation)
	num := math.Pow(var1/n1+var2/n2, 2)
	denom := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	if denom == 0 {
		return nil, ErrZeroVariance
	}
	df := num / denom

	pValue := tDistributionPValue(math.Abs(tStat), df)

	return &TTestResult{
		TStatistic:        tStat,
		PValue:            pValue,
		DegreesOfFreedom:  df,
		Significant:       pValue < alpha,
		SignificanceLevel: alpha,
		Mean1:             mean1,
		Mean2:             mean2,
	}, nil
}

// EffectSize calculates Cohen's d effect size.
//
// Description:
//
//	Cohen's d measures the standardized difference between two means.
//	Uses the pooled standard deviation for the denominator. Positive
//	means samples1 > samples2.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func EffectSize(samples1, samples2 []float64) (float64, error) {
	if len(samples1) < 2 || len(samples2) < 2 {
		return 0, ErrInsufficientSamples
	}

	mean1 := mean(samples1)
	mean2 := mean(samples2)

	var1 := sampleVariance(samples1, mean1)
	var2 := sampleVariance(samples2, mean2)

	n1 := float64(len(samples1))
	n2 := float64(len(samples2))

	// Pooled standard deviation
	pooledVar := ((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2)
	pooledStdDev := math.Sqrt(pooledVar)

	if pooledStdDev == 0 {
		return 0, ErrZeroVariance
	}

	return (mean1 - mean2) / pooledStdDev, nil
}

// -----------------------------------------------------------------------------
// Power Analysis
// -----------------------------------------------------------------------------

// CalculatePower estimates statistical power for the given sample sizes.
//
// Description:
//
//	Power is the probability of correctly rejecting the null hypothesis
//	when there is a true effect. Higher power (e.g., 0.8 or 0.9) means
//	the experiment is more likely to detect real differences.
//
// Inputs:
//   - n1: Sample size for group 1.
//   - n2: Sample size for group 2.
//   - effectSize: Expected Cohen's d effect size.
//   - alpha: Significance level (e.g., 0.05).
//
// Outputs:
//   - float64: Statistical power (0 to 1).
//
// Thread Safety: This function is stateless and safe for concurrent use.
func CalculatePower(n1, n2 int, effectSize, alpha float64) float64 {
	if n1 < 2 || n2 < 2 {
		return 0
	}

	// Harmonic mean of sample sizes for unequal groups
	nHarmonic := 2 * float64(n1) * float64(n2) / float64(n1+n2)

	// Non-centrality parameter
	ncp := effectSize * math.Sqrt(nHarmonic/2)

	// Critical value for a two-tailed test at alpha, normal approximation
	zCrit := zScore(1 - alpha/2)

	power := 1 - normalCDF(zCrit-ncp)

	if power < 0 {
		power = 0
	}
	if power > 1 {
		power = 1
	}
	return power
}

// RequiredSampleSize calculates samples per group for desired power.
//
// Description:
//
//	Determines the minimum sample size per group needed to achieve
//	a specified power level for detecting a given effect size, using
//	Cohen's formula for a two-sample t-test:
//	n = 2 * ((z_alpha + z_power) / d)^2.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func RequiredSampleSize(effectSize, alpha, power float64) int {
	if effectSize == 0 {
		return math.MaxInt32 // zero effect needs infinite samples
	}

	zAlpha := zScore(1 - alpha/2) // two-tailed
	zPower := zScore(power)

	n := 2 * math.Pow((zAlpha+zPower)/effectSize, 2)

	// Add 1 and ceiling for a conservative estimate
	return int(math.Ceil(n)) + 1
}

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// mean calculates the arithmetic mean.
func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// sampleVariance calculates the unbiased (n-1) sample variance.
func sampleVariance(samples []float64, mean float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		diff := s - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(samples)-1)
}

// normalCDF approximates the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt(2)))
}

// zScore returns the z-score for a given percentile.
func zScore(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}
	// For p in (0,1): z = sqrt(2) * erfinv(2p - 1)
	return math.Sqrt(2) * math.Erfinv(2*p-1)
}

// tDistributionPValue approximates the two-tailed p-value.
func tDistributionPValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}

	// For large df, use normal approximation
	if df >= 30 {
		return 2 * (1 - normalCDF(t))
	}

	// For smaller df, adjust the t-statistic to approximate the
	// heavier-tailed t-distribution
	adjustedT := t * math.Sqrt(df/(df-2+0.001))
	pValue := 2 * (1 - normalCDF(adjustedT))

	if pValue < 0 {
		pValue = 0
	}
	if pValue > 1 {
		pValue = 1
	}
	return pValue
}
