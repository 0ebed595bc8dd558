// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeParsesCleanJSON(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) {
		return `{"subClaims":["the dam was completed in 2024","the dam cost 2 billion dollars"],"keywords":["dam","completed","2024","cost"],"context":"Infrastructure completion claim.","entities":[],"locations":[],"dates":["2024"],"numbers":["2 billion"]}`, nil
	}}
	a := NewAnalyzer(mock)

	analysis := a.Analyze(context.Background(), "the dam was completed in 2024 at a cost of 2 billion dollars")
	require.NotNil(t, analysis)
	assert.Len(t, analysis.SubClaims, 2)
	assert.Equal(t, []string{"dam", "completed", "2024", "cost"}, analysis.Keywords)
	assert.Equal(t, "Infrastructure completion claim.", analysis.Context)
	assert.Equal(t, []string{"2024"}, analysis.Dates)
}

func TestAnalyzeRecoversFencedJSON(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) {
		return "Here is the decomposition:\n```json\n{\"subClaims\":[\"x\"],\"keywords\":[\"alpha\"],\"context\":\"c\"}\n```", nil
	}}
	a := NewAnalyzer(mock)

	analysis := a.Analyze(context.Background(), "x")
	require.NotNil(t, analysis)
	assert.Equal(t, []string{"x"}, analysis.SubClaims)
	assert.Equal(t, []string{"alpha"}, analysis.Keywords)
}

func TestAnalyzeHeuristicOnModelError(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) { return "", errors.New("model offline") }}
	a := NewAnalyzer(mock)

	claim := "the observatory recorded its warmest winter since 1950"
	analysis := a.Analyze(context.Background(), claim)
	require.NotNil(t, analysis)
	assert.Equal(t, []string{claim}, analysis.SubClaims)
	assert.Equal(t, []string{"observatory", "recorded", "warmest", "winter", "since"}, analysis.Keywords)
}

func TestAnalyzeHeuristicOnUnparseableOutput(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) { return "I cannot produce { valid JSON today", nil }}
	a := NewAnalyzer(mock)

	claim := "imports fell sharply in the first quarter"
	analysis := a.Analyze(context.Background(), claim)
	require.NotNil(t, analysis)
	assert.Equal(t, []string{claim}, analysis.SubClaims)
	assert.NotEmpty(t, analysis.Keywords)
}

func TestAnalyzeRetriesOnceOnMissingJSON(t *testing.T) {
	calls := 0
	mock := &mockLLM{respond: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "no json here at all", nil
		}
		return `{"subClaims":["s"],"keywords":["kilo"],"context":"c"}`, nil
	}}
	a := NewAnalyzer(mock)

	analysis := a.Analyze(context.Background(), "s")
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"s"}, analysis.SubClaims)
}

func TestAnalyzeTopsUpPartialOutput(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) {
		return `{"subClaims":[],"keywords":[],"context":"thin"}`, nil
	}}
	a := NewAnalyzer(mock)

	claim := "exports doubled between 2020 and 2023"
	analysis := a.Analyze(context.Background(), claim)
	assert.Equal(t, []string{claim}, analysis.SubClaims)
	assert.Equal(t, []string{"exports", "doubled", "between", "2020", "2023"}, analysis.Keywords)
}

func TestHeuristicKeywordsCapAndDedup(t *testing.T) {
	kw := heuristicKeywords("Word word WORD alpha beta gamma delta epsilon zeta")
	assert.Equal(t, []string{"word", "alpha", "beta", "gamma", "delta"}, kw)
}
