// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
)

const (
	defaultKeywordWeight = 0.7
	defaultRecencyWeight = 0.3
	defaultMinScore      = 0.2
	claimTokenMinLen     = 4
	claimTokenCap        = 25
	// Coverage when the claim yields no usable tokens; keeps short claims
	// from zeroing every candidate.
	neutralCoverage = 0.4
	// Recency weight for undated or unparseable evidence.
	unknownRecency = 0.3
	// Recency weight for evidence older than a month.
	staleRecency = 0.25
)

// CuratorConfig tunes evidence scoring. Zero values take defaults.
type CuratorConfig struct {
	// KeywordWeight scales the claim-token coverage component. Default 0.7.
	KeywordWeight float64
	// RecencyWeight scales the publication-recency component. Default 0.3.
	RecencyWeight float64
	// MinScore drops candidates scoring below it. Default 0.2.
	MinScore float64
	// MaxItems caps the curated set. Default 6, hard cap 8.
	MaxItems int
}

func (c CuratorConfig) withDefaults() CuratorConfig {
	if c.KeywordWeight <= 0 {
		c.KeywordWeight = defaultKeywordWeight
	}
	if c.RecencyWeight <= 0 {
		c.RecencyWeight = defaultRecencyWeight
	}
	if c.MinScore <= 0 {
		c.MinScore = defaultMinScore
	}
	if c.MaxItems <= 0 {
		c.MaxItems = 6
	}
	if c.MaxItems > 8 {
		c.MaxItems = 8
	}
	return c
}

// Curator turns the raw research pool into a small, deduplicated, scored
// evidence set.
//
// # Description
//
// Curation is deterministic and side-effect free: duplicates collapse
// first-seen-wins under a normalized-URL (or title+source) key, each
// survivor is scored as a weighted blend of claim-token coverage and
// publication recency, low scorers and items without an absolute http(s)
// link are dropped, and the rest sort by score (recency breaks ties).
// Running Curate over its own output yields the identical set.
//
// # Thread Safety
//
// Safe for concurrent use; Curator holds no mutable state.
type Curator struct {
	cfg CuratorConfig
	now func() time.Time
}

// NewCurator creates a Curator with the given config.
func NewCurator(cfg CuratorConfig) *Curator {
	return &Curator{cfg: cfg.withDefaults(), now: time.Now}
}

// Curate returns the curated evidence for claim, highest score first.
func (c *Curator) Curate(claim string, pool []datatypes.EvidenceDocument) []datatypes.EvidenceDocument {
	scored := c.CurateScored(claim, pool)
	out := make([]datatypes.EvidenceDocument, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.EvidenceDocument)
	}
	return out
}

// CurateScored is Curate with the per-item score breakdown attached.
func (c *Curator) CurateScored(claim string, pool []datatypes.EvidenceDocument) []datatypes.ScoredEvidence {
	tokens := claimTokens(claim)
	now := c.now()

	seen := make(map[string]struct{}, len(pool))
	var kept []datatypes.ScoredEvidence
	for _, doc := range pool {
		if !usableLink(doc.URL) {
			continue
		}
		key := dedupKey(doc)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		coverage := tokenCoverage(tokens, doc.Title+" "+doc.Snippet)
		recency := recencyWeight(doc.PublishedAt, now)
		combined := c.cfg.KeywordWeight*coverage + c.cfg.RecencyWeight*recency
		if combined < c.cfg.MinScore {
			continue
		}
		kept = append(kept, datatypes.ScoredEvidence{
			EvidenceDocument: doc,
			KeywordScore:     coverage,
			RecencyWeight:    recency,
			CombinedScore:    combined,
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].CombinedScore != kept[j].CombinedScore {
			return kept[i].CombinedScore > kept[j].CombinedScore
		}
		return kept[i].RecencyWeight > kept[j].RecencyWeight
	})

	if len(kept) > c.cfg.MaxItems {
		kept = kept[:c.cfg.MaxItems]
	}
	return kept
}

// =============================================================================
// Deduplication
// =============================================================================

// dedupKey identifies a document for duplicate collapse: the normalized
// URL when present, otherwise title plus source.
func dedupKey(doc datatypes.EvidenceDocument) string {
	if norm := NormalizeURL(doc.URL); norm != "" {
		return "u:" + norm
	}
	return "t:" + collapseSpace(strings.ToLower(doc.Title)) + "|" + collapseSpace(strings.ToLower(doc.SourceName))
}

// NormalizeURL canonicalizes a link for identity comparison: lowercase,
// scheme and www. prefix stripped, query string and fragment discarded,
// trailing slash removed. Returns "" for blank input.
func NormalizeURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "/")
}

// usableLink reports whether a citation link is an absolute http(s) URL.
func usableLink(raw string) bool {
	s := strings.TrimSpace(raw)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// =============================================================================
// Scoring
// =============================================================================

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// claimTokens extracts the distinct lowercase alphanumeric runs of at
// least claimTokenMinLen characters, capped at claimTokenCap.
func claimTokens(claim string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range tokenRe.FindAllString(strings.ToLower(claim), -1) {
		if len(tok) < claimTokenMinLen {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
		if len(tokens) == claimTokenCap {
			break
		}
	}
	return tokens
}

// tokenCoverage is the fraction of claim tokens present in the candidate
// text.
func tokenCoverage(tokens []string, text string) float64 {
	if len(tokens) == 0 {
		return neutralCoverage
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// recencyWeight maps a publication date to a step-function weight: newer
// evidence counts more, undated evidence lands just above the floor so it
// survives curation without outranking anything dated and recent.
func recencyWeight(published string, now time.Time) float64 {
	t, ok := parsePublished(published, now)
	if !ok {
		return unknownRecency
	}
	ageDays := now.Sub(t).Hours() / 24
	switch {
	case ageDays <= 1:
		return 1.0
	case ageDays <= 3:
		return 0.9
	case ageDays <= 7:
		return 0.75
	case ageDays <= 14:
		return 0.6
	case ageDays <= 30:
		return 0.45
	default:
		return staleRecency
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

var relativeDateRe = regexp.MustCompile(`^(\d+)\s+(minute|hour|day|week|month)s?\s+ago$`)

// parsePublished handles the absolute layouts search providers emit plus
// their relative forms ("3 days ago").
func parsePublished(published string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(published)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if m := relativeDateRe.FindStringSubmatch(strings.ToLower(s)); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		var d time.Duration
		switch m[2] {
		case "minute":
			d = time.Duration(n) * time.Minute
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		case "month":
			d = time.Duration(n) * 30 * 24 * time.Hour
		}
		return now.Add(-d), true
	}
	return time.Time{}, false
}
