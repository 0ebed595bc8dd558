// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jsonextract

import (
	"encoding/json"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantField string
		wantValue any
	}{
		{
			name:      "clean JSON",
			input:     `{"verdict":"SUPPORTED","confidence":0.9}`,
			wantField: "verdict",
			wantValue: "SUPPORTED",
		},
		{
			name:      "JSON with whitespace",
			input:     "   {\"verdict\":\"REFUTED\"}   ",
			wantField: "verdict",
			wantValue: "REFUTED",
		},
		{
			name:      "markdown JSON block",
			input:     "```json\n{\"verdict\":\"SUPPORTED\"}\n```",
			wantField: "verdict",
			wantValue: "SUPPORTED",
		},
		{
			name:      "generic code block",
			input:     "```\n{\"verdict\":\"SUPPORTED\"}\n```",
			wantField: "verdict",
			wantValue: "SUPPORTED",
		},
		{
			name:      "uppercase fence tag",
			input:     "```JSON\n{\"verdict\":\"SUPPORTED\"}\n```",
			wantField: "verdict",
			wantValue: "SUPPORTED",
		},
		{
			name:      "JSON with preamble",
			input:     "Here is my adjudication:\n{\"verdict\":\"SUPPORTED\"}",
			wantField: "verdict",
			wantValue: "SUPPORTED",
		},
		{
			name:      "JSON with postamble",
			input:     "{\"verdict\":\"SUPPORTED\"}\nHope this helps!",
			wantField: "verdict",
			wantValue: "SUPPORTED",
		},
		{
			name:      "nested braces in string",
			input:     `{"reasoning":"something {with} braces","ok":true}`,
			wantField: "ok",
			wantValue: true,
		},
		{
			name:      "escaped quotes in string",
			input:     `{"reasoning":"it said \"maybe\"","ok":true}`,
			wantField: "ok",
			wantValue: true,
		},
		{
			name:      "trailing comma in object",
			input:     `The result: {"subClaims":["a","b"],"context":"x",}`,
			wantField: "context",
			wantValue: "x",
		},
		{
			name:      "trailing comma in array",
			input:     `Sure: {"keywords":["economy","inflation",]}`,
			wantField: "keywords",
			wantValue: []any{"economy", "inflation"},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   \t\n  ",
			wantErr: true,
		},
		{
			name:    "no JSON",
			input:   "This is just plain text without any JSON",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			input:   "{verdict: SUPPORTED}",
			wantErr: true,
		},
		{
			name:    "incomplete JSON",
			input:   `{"verdict":"SUPPORTED"`,
			wantErr: true,
		},
		{
			name:      "multiple JSON objects takes first",
			input:     `{"first":1} {"second":2}`,
			wantField: "first",
			wantValue: float64(1),
		},
		{
			name:      "deeply nested object",
			input:     `{"outer":{"inner":{"ok":true}}}`,
			wantField: "outer",
			wantValue: map[string]any{"inner": map[string]any{"ok": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed map[string]any
			if err := json.Unmarshal(result, &parsed); err != nil {
				t.Fatalf("result is not valid JSON: %v", err)
			}

			val, exists := parsed[tt.wantField]
			if !exists {
				t.Fatalf("expected field %q not found", tt.wantField)
			}

			switch expected := tt.wantValue.(type) {
			case bool, string, float64:
				if val != expected {
					t.Errorf("expected %v, got %v", expected, val)
				}
			case []any:
				gotArr, ok := val.([]any)
				if !ok {
					t.Fatalf("expected array, got %T", val)
				}
				if len(gotArr) != len(expected) {
					t.Errorf("expected %d elements, got %d", len(expected), len(gotArr))
				}
			case map[string]any:
				if _, ok := val.(map[string]any); !ok {
					t.Errorf("expected map, got %T", val)
				}
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	input := "Analysis follows.\n```json\n{\"subClaims\":[\"x\"],}\n```\ndone"
	first, err := Extract(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Extract(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("extraction not deterministic: %q vs %q", first, second)
	}
}

func TestUnmarshal(t *testing.T) {
	type analysis struct {
		SubClaims []string `json:"subClaims"`
		Context   string   `json:"context"`
	}

	t.Run("decodes into struct", func(t *testing.T) {
		var a analysis
		input := "```json\n{\"subClaims\":[\"the event occurred\"],\"context\":\"news\"}\n```"
		if err := Unmarshal(input, &a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(a.SubClaims) != 1 || a.SubClaims[0] != "the event occurred" {
			t.Errorf("unexpected subClaims: %v", a.SubClaims)
		}
		if a.Context != "news" {
			t.Errorf("unexpected context: %q", a.Context)
		}
	})

	t.Run("propagates extraction failure", func(t *testing.T) {
		var a analysis
		if err := Unmarshal("no json here", &a); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("propagates decode failure", func(t *testing.T) {
		var a analysis
		if err := Unmarshal(`{"subClaims":"not an array"}`, &a); err == nil {
			t.Error("expected error")
		}
	})
}
