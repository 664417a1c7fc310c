// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// modelgen is an operator tool for the churn serving stack: it writes
// logistic regression artifacts that the server can deploy and sizes
// canary experiments before they run.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianServe/services/modelserve/canary"
	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
)

var (
	featureCount int
	seed         int64
	intercept    float64

	effectSize  float64
	alpha       float64
	targetPower float64
	sampleSize  int

	rootCmd = &cobra.Command{
		Use:   "modelgen",
		Short: "Generate serving artifacts and size canary experiments",
	}

	generateCmd = &cobra.Command{
		Use:   "generate [output-path]",
		Short: "Write a logistic regression artifact deployable as stable or canary",
		Args:  cobra.ExactArgs(1),
		Run:   runGenerate,
	}

	powerCmd = &cobra.Command{
		Use:   "power",
		Short: "Estimate the sample size a canary comparison needs",
		Run:   runPower,
	}
)

func init() {
	generateCmd.Flags().IntVar(&featureCount, "features", 5, "feature vector arity")
	generateCmd.Flags().Int64Var(&seed, "seed", 42, "seed for coefficient generation")
	generateCmd.Flags().Float64Var(&intercept, "intercept", 0, "model intercept")

	powerCmd.Flags().Float64Var(&effectSize, "effect", 0.5, "expected Cohen's d effect size")
	powerCmd.Flags().Float64Var(&alpha, "alpha", canary.DefaultAlpha, "significance level")
	powerCmd.Flags().Float64Var(&targetPower, "power", 0.8, "desired statistical power")
	powerCmd.Flags().IntVar(&sampleSize, "samples", 0,
		"per-group sample count to evaluate (0 skips the power estimate)")

	rootCmd.AddCommand(generateCmd, powerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func runGenerate(cmd *cobra.Command, args []string) {
	outputPath := args[0]
	if featureCount < 1 {
		log.Fatalf("--features must be at least 1, got %d", featureCount)
	}

	rng := rand.New(rand.NewSource(seed))
	coefficients := make([]float64, featureCount)
	for i := range coefficients {
		coefficients[i] = rng.NormFloat64()
	}

	artifact := model.Artifact{
		SchemaVersion: model.ArtifactSchemaVersion,
		ModelType:     model.ModelTypeLogisticRegression,
		FeatureCount:  featureCount,
		Coefficients:  coefficients,
		Intercept:     intercept,
	}

	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode artifact: %v", err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}
	if err := os.WriteFile(outputPath, payload, 0o644); err != nil {
		log.Fatalf("Failed to write artifact: %v", err)
	}

	fmt.Printf("Wrote %s (%d features, seed %d)\n", outputPath, featureCount, seed)
}

func runPower(cmd *cobra.Command, args []string) {
	if effectSize <= 0 {
		log.Fatalf("--effect must be positive, got %v", effectSize)
	}

	required := canary.RequiredSampleSize(effectSize, alpha, targetPower)
	fmt.Printf("Detecting d=%.2f at alpha=%.3f with power %.2f needs %d samples per group\n",
		effectSize, alpha, targetPower, required)

	if sampleSize > 0 {
		achieved := canary.CalculatePower(sampleSize, sampleSize, effectSize, alpha)
		fmt.Printf("With %d samples per group the estimated power is %.3f\n",
			sampleSize, achieved)
	}
}
