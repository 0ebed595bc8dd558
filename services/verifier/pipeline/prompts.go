// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
)

const classifyPromptTemplate = `Classify the user message below into exactly one category.

Categories:
- CASUAL: greetings, small talk, questions about this assistant, or anything with no factual claim to check.
- VERIFICATION_REQUIRED: any statement or question that asserts or implies a checkable fact about the world.

Respond with the single category word and nothing else.

Message: %q

Category:`

func classifyPrompt(claim string) string {
	return fmt.Sprintf(classifyPromptTemplate, claim)
}

const casualPromptTemplate = `You are TruthSpotter, a friendly fact-checking assistant.
The user sent a conversational message, not a claim to verify. Reply briefly
and warmly in one or two sentences. If it fits naturally, mention that they
can send you any factual claim to check.

Message: %q

Reply:`

func casualPrompt(claim string) string {
	return fmt.Sprintf(casualPromptTemplate, claim)
}

const analyzePromptTemplate = `Decompose the claim below for fact-checking.

Return ONLY a JSON object with this exact shape:
{
  "subClaims": ["each independently checkable assertion, in the claim's own words"],
  "keywords": ["3-8 search keywords, most specific first"],
  "context": "one sentence describing what the claim is about",
  "entities": ["named people, organizations, products"],
  "locations": ["places mentioned"],
  "dates": ["dates or time references mentioned"],
  "numbers": ["quantities, amounts, statistics mentioned"]
}

Use empty arrays for anything the claim does not contain. Do not add
commentary before or after the JSON.

Claim: %q`

func analyzePrompt(claim string) string {
	return fmt.Sprintf(analyzePromptTemplate, claim)
}

const factCheckPromptHeader = `You are adjudicating a factual claim against collected evidence.

Rules:
- Judge ONLY from the evidence below. Do not use outside knowledge.
- When evidence items conflict, prefer the more recent and more
  authoritative item and say so.
- If the evidence is insufficient or genuinely conflicting, the verdict is
  INCONCLUSIVE.
- Cite evidence by its bracketed index, e.g. [2].

Return ONLY a JSON object:
{"verdict": "SUPPORTED" | "REFUTED" | "INCONCLUSIVE", "reasoning": "2-4 sentences citing evidence by index"}

Claim: %q

Evidence:
`

// factCheckPrompt renders the claim and up to maxItems evidence snippets,
// each indexed and dated so the model can cite and weigh recency.
func factCheckPrompt(claim string, evidence []datatypes.EvidenceDocument, maxItems int) string {
	var b strings.Builder
	fmt.Fprintf(&b, factCheckPromptHeader, claim)
	for i, ev := range evidence {
		if i >= maxItems {
			break
		}
		date := ev.PublishedAt
		if date == "" {
			date = "undated"
		}
		fmt.Fprintf(&b, "[%d] (%s, %s) %s: %s\n", i+1, ev.SourceName, date, ev.Title, ev.Snippet)
	}
	b.WriteString("\nJSON:")
	return b.String()
}

const refinePromptTemplate = `Rewrite the fact-check summary below so it cites at least one evidence
item by its bracketed index, preferring the most recent item. Keep the
verdict and meaning unchanged. Return only the rewritten summary.

Summary: %q

Evidence:
%s
Rewritten summary:`

func refinePrompt(summary string, evidence []datatypes.EvidenceDocument) string {
	var b strings.Builder
	for i, ev := range evidence {
		date := ev.PublishedAt
		if date == "" {
			date = "undated"
		}
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, date, ev.Title)
	}
	return fmt.Sprintf(refinePromptTemplate, summary, b.String())
}
