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
	"strings"
	"testing"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvidence() []datatypes.EvidenceDocument {
	return []datatypes.EvidenceDocument{
		{Title: "Council approves ban", Snippet: "The council approved the ban on Tuesday.", SourceName: "city.gov", URL: "https://city.gov/ban", PublishedAt: "2025-06-14"},
		{Title: "Ban takes effect", Snippet: "The ban takes effect next month.", SourceName: "paper.example", URL: "https://paper.example/ban", PublishedAt: "2025-06-13"},
	}
}

func TestCheckParsesVerdict(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) {
		return `{"verdict":"SUPPORTED","reasoning":"Both [1] and [2] confirm the ban."}`, nil
	}}
	f := NewFactChecker(mock)

	adj := f.Check(context.Background(), "the council banned gas stoves", sampleEvidence())
	assert.Equal(t, datatypes.VerdictSupported, adj.Verdict)
	assert.Equal(t, "Both [1] and [2] confirm the ban.", adj.Reasoning)
}

func TestCheckNormalizesVerdictCase(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) {
		return `{"verdict":"refuted","reasoning":"Item [1] contradicts the claim."}`, nil
	}}
	f := NewFactChecker(mock)

	adj := f.Check(context.Background(), "c", sampleEvidence())
	assert.Equal(t, datatypes.VerdictRefuted, adj.Verdict)
}

func TestCheckUnknownVerdictBecomesInconclusive(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) {
		return `{"verdict":"MAYBE","reasoning":"Hard to tell."}`, nil
	}}
	f := NewFactChecker(mock)

	adj := f.Check(context.Background(), "c", sampleEvidence())
	assert.Equal(t, datatypes.VerdictInconclusive, adj.Verdict)
	assert.Equal(t, "Hard to tell.", adj.Reasoning)
}

func TestCheckInconclusiveOnModelError(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) { return "", errors.New("model offline") }}
	f := NewFactChecker(mock)

	adj := f.Check(context.Background(), "c", sampleEvidence())
	assert.Equal(t, datatypes.VerdictInconclusive, adj.Verdict)
	assert.Equal(t, neutralReasoning, adj.Reasoning)
}

func TestCheckInconclusiveOnUnparseableOutput(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) { return "the claim seems plausible to me", nil }}
	f := NewFactChecker(mock)

	adj := f.Check(context.Background(), "c", sampleEvidence())
	assert.Equal(t, datatypes.VerdictInconclusive, adj.Verdict)
	assert.Equal(t, neutralReasoning, adj.Reasoning)
}

func TestCheckEmptyReasoningGetsNeutralText(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) {
		return `{"verdict":"SUPPORTED","reasoning":"  "}`, nil
	}}
	f := NewFactChecker(mock)

	adj := f.Check(context.Background(), "c", sampleEvidence())
	assert.Equal(t, datatypes.VerdictSupported, adj.Verdict)
	assert.Equal(t, neutralReasoning, adj.Reasoning)
}

func TestFactCheckPromptIndexesAndDatesEvidence(t *testing.T) {
	prompt := factCheckPrompt("the council banned gas stoves", sampleEvidence(), factCheckEvidenceCap)
	assert.Contains(t, prompt, "[1] (city.gov, 2025-06-14)")
	assert.Contains(t, prompt, "[2] (paper.example, 2025-06-13)")
	assert.Contains(t, prompt, `"the council banned gas stoves"`)
}

func TestFactCheckPromptCapsEvidence(t *testing.T) {
	var evidence []datatypes.EvidenceDocument
	for i := 0; i < 10; i++ {
		evidence = append(evidence, datatypes.EvidenceDocument{
			Title: "t", Snippet: "s", SourceName: "src", URL: "https://e.example/x",
		})
	}
	prompt := factCheckPrompt("c", evidence, factCheckEvidenceCap)
	require.Contains(t, prompt, "[6]")
	assert.NotContains(t, prompt, "[7]")
	// Undated items are labeled rather than left blank.
	assert.True(t, strings.Contains(prompt, "undated"))
}
