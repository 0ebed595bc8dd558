// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	gocache "github.com/patrickmn/go-cache"
)

// QueryKind is the classifier's decision about one inbound message.
type QueryKind string

const (
	// QueryCasual is small talk or meta-conversation with no checkable claim.
	QueryCasual QueryKind = "CASUAL"

	// QueryVerificationRequired is anything asserting or implying a
	// checkable fact. This is also the fail-closed default.
	QueryVerificationRequired QueryKind = "VERIFICATION_REQUIRED"
)

const (
	classifierCacheTTL     = 10 * time.Minute
	classifierCacheSweep   = 20 * time.Minute
	classifierMaxTokensCap = 8
)

// Classifier decides whether a message is casual conversation or a claim
// that needs verification.
//
// # Description
//
// Classification is one low-temperature completion constrained to a single
// category word. On any model error, empty output, or unrecognized label
// the classifier fails closed to VERIFICATION_REQUIRED: wrongly verifying
// small talk wastes a run, wrongly skipping verification misleads the user.
//
// Decisions are cached by claim digest so repeated claims (retries,
// streaming reconnects) skip the model call.
//
// # Thread Safety
//
// Safe for concurrent use.
type Classifier struct {
	llm   llm.Client
	cache *gocache.Cache
}

// NewClassifier creates a Classifier backed by the given completion client.
// Panics if client is nil.
func NewClassifier(client llm.Client) *Classifier {
	if client == nil {
		panic("pipeline: NewClassifier requires a non-nil llm client")
	}
	return &Classifier{
		llm:   client,
		cache: gocache.New(classifierCacheTTL, classifierCacheSweep),
	}
}

// Classify returns the QueryKind for one message. It never returns an
// error; failures degrade to QueryVerificationRequired.
func (c *Classifier) Classify(ctx context.Context, claim string) QueryKind {
	key := claimDigest(claim)
	if cached, ok := c.cache.Get(key); ok {
		if kind, ok := cached.(QueryKind); ok {
			return kind
		}
	}

	out, err := c.llm.Complete(ctx, classifyPrompt(claim), llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.0),
		MaxTokens:   llm.IntPtr(classifierMaxTokensCap),
	})
	kind := parseQueryKind(out, err)
	c.cache.Set(key, kind, gocache.DefaultExpiration)
	return kind
}

// parseQueryKind maps raw model output to a QueryKind, failing closed.
func parseQueryKind(out string, err error) QueryKind {
	if err != nil {
		slog.Warn("claim classification failed, assuming verification required", "error", err)
		return QueryVerificationRequired
	}
	upper := strings.ToUpper(strings.TrimSpace(out))
	// A response naming both categories is ambiguous and stays closed.
	if strings.Contains(upper, "CASUAL") && !strings.Contains(upper, "VERIFICATION") {
		return QueryCasual
	}
	return QueryVerificationRequired
}

func claimDigest(claim string) string {
	sum := sha256.Sum256([]byte(claim))
	return hex.EncodeToString(sum[:])
}
