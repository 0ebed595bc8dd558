// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jsonextract recovers JSON payloads from free-form language-model
// output.
//
// Models asked for "JSON only" still wrap their answers in prose, markdown
// code fences, or trailing commentary. This package implements a three-tier
// recovery chain that every pipeline stage consuming structured model output
// shares:
//
//  1. Direct parse of the trimmed response.
//  2. Extraction of the first fenced code block and parse of its contents.
//  3. A balanced-brace scan from the first '{' to its matching '}', with
//     trailing commas stripped before closing brackets and braces.
//
// The chain is pure and deterministic: the same input always yields the same
// output, and no tier has side effects.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fenceRe matches a markdown code fence with an optional language tag,
// capturing the fenced body. (?s) lets the body span newlines.
var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// trailingCommaRe matches a comma that directly precedes a closing brace or
// bracket, ignoring whitespace. Models emit these routinely and
// encoding/json rejects them.
var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// Extract recovers the first JSON object from raw model output.
//
// # Description
//
// Tries the three recovery tiers in order and returns the first candidate
// that parses as valid JSON. The returned bytes are the exact candidate
// substring (with trailing commas stripped for tier 3), ready for
// json.Unmarshal into a caller-defined type.
//
// # Inputs
//
//   - raw: The full model response. May contain prose, fences, or nothing.
//
// # Outputs
//
//   - []byte: A valid JSON document.
//   - error: Non-nil if no tier produced parseable JSON.
//
// # Limitations
//
//   - Only objects are recovered by tier 3; a bare top-level array must
//     arrive clean or inside a fence.
func Extract(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty response")
	}

	// Tier 1: the whole response is JSON.
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}

	// Tier 2: first fenced code block.
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}

	// Tier 3: balanced-brace scan.
	if candidate, ok := scanBraces(trimmed); ok {
		repaired := trailingCommaRe.ReplaceAllString(candidate, "$1")
		if json.Valid([]byte(repaired)) {
			return []byte(repaired), nil
		}
	}

	return nil, fmt.Errorf("no valid JSON found in response")
}

// Unmarshal runs the extraction chain and decodes the result into v.
//
// # Inputs
//
//   - raw: The full model response.
//   - v: Destination for json.Unmarshal. Must be a non-nil pointer.
//
// # Outputs
//
//   - error: Non-nil if extraction or decoding failed.
func Unmarshal(raw string, v any) error {
	data, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode extracted JSON: %w", err)
	}
	return nil
}

// scanBraces locates the first '{' and walks forward tracking brace depth,
// honoring string literals and escape sequences, and returns the substring
// through the matching '}'. Falls back to the last '}' in the input when the
// object is unbalanced, which recovers responses truncated mid-commentary.
func scanBraces(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	// Unbalanced: take through the last closing brace and let validation
	// decide.
	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
