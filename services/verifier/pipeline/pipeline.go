// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline implements the claim-verification orchestration pipeline.
//
// A claim enters through a Verifier, is classified as casual or factual,
// and factual claims flow through decomposition, evidence research,
// curation, adjudication, and synthesis into a structured
// VerificationResult. Every stage has an explicit fallback: internal
// failures degrade the result, they never surface to the caller. The only
// hard errors a Verifier returns are reentrancy violations.
//
// One Verifier instance serves one run at a time; the hosting service
// builds a fresh instance per request, so concurrent runs never share
// mutable state. The injected collaborators (language model, web search,
// similarity store) must be safe for concurrent use across runs.
package pipeline

import (
	"fmt"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	"github.com/Mayuresh1004/TruthSpotter/services/search"
	"github.com/Mayuresh1004/TruthSpotter/services/vectorstore"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/observability"
	"go.opentelemetry.io/otel"

	"context"
)

// tracer is the OpenTelemetry tracer for pipeline operations.
var tracer = otel.Tracer("truthspotter.verifier.pipeline")

// =============================================================================
// Public contract
// =============================================================================

// Outcome is what one verification run produces. Exactly one of the two
// shapes is populated: a conversational reply for casual input, or a
// VerificationResult for factual claims (possibly a degraded fallback).
type Outcome struct {
	Casual bool                          `json:"casual"`
	Reply  string                        `json:"reply,omitempty"`
	Result *datatypes.VerificationResult `json:"result,omitempty"`
}

// ProgressFunc receives one progress event per stage transition, in strict
// stage order, before the next stage begins. Delivery is synchronous; slow
// observers slow the run.
type ProgressFunc func(stage State, message string)

// Verifier is the canonical public contract for claim verification.
//
// # Description
//
// Alternate execution strategies (for example a tool-calling agent loop)
// are implementation details behind this interface, selected at
// construction time. Business logic is never duplicated per strategy.
//
// # Thread Safety
//
// A Verifier tolerates concurrent calls but serves only one run at a time:
// a second Verify while one is active fails immediately with
// *AlreadyRunningError.
type Verifier interface {
	// Verify runs the full pipeline for one claim. The claim must already
	// satisfy the request contract (non-empty, bounded length); the
	// pipeline does not re-validate it.
	Verify(ctx context.Context, claim string, vctx datatypes.VerificationContext) (*Outcome, error)
}

// Deps are the injected collaborators for one pipeline instance.
type Deps struct {
	// LLM is the language-model completion client. Required.
	LLM llm.Client
	// Search is the web-search collaborator. Required.
	Search search.Client
	// Store is the similarity-store collaborator. Required.
	Store vectorstore.Store
	// Metrics records run and stage outcomes. Optional; nil disables.
	Metrics *observability.Metrics
}

// Config tunes one pipeline instance. Zero values take defaults.
type Config struct {
	// Strategy names the execution strategy. Empty or "staged" selects the
	// sequential staged pipeline, the only strategy in the open-source
	// build.
	Strategy string
	// Deadline bounds the whole run. Default 120s.
	Deadline time.Duration
	// NearestK is how many similarity-store neighbors to retrieve.
	// Default 20.
	NearestK int
	// MaxEvidence caps surfaced evidence items. Default 6, hard cap 8.
	MaxEvidence int
	// Curator overrides curation scoring. Zero value takes curator
	// defaults.
	Curator CuratorConfig
}

func (c Config) withDefaults() Config {
	if c.Deadline <= 0 {
		c.Deadline = 120 * time.Second
	}
	if c.NearestK <= 0 {
		c.NearestK = 20
	}
	if c.MaxEvidence <= 0 {
		c.MaxEvidence = 6
	}
	if c.MaxEvidence > 8 {
		c.MaxEvidence = 8
	}
	return c
}

// NewVerifier constructs the strategy named by cfg.Strategy.
func NewVerifier(deps Deps, cfg Config, observer ProgressFunc) (Verifier, error) {
	switch cfg.Strategy {
	case "", "staged":
		return New(deps, cfg, observer), nil
	default:
		return nil, fmt.Errorf("unknown pipeline strategy %q", cfg.Strategy)
	}
}

// =============================================================================
// States
// =============================================================================

// State is one node of the run state machine. Transitions are forward-only;
// no state is revisited within a run.
type State int

const (
	StateIdle State = iota
	StateClassifying
	StateCasualHandling
	StateAnalyzing
	StateResearching
	StateCurating
	StateFactChecking
	StateSynthesizing
	StateCompleted
	StateFailed
	StateTimedOut
)

// String implements fmt.Stringer for State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateClassifying:
		return "Classifying"
	case StateCasualHandling:
		return "CasualHandling"
	case StateAnalyzing:
		return "Analyzing"
	case StateResearching:
		return "Researching"
	case StateCurating:
		return "Curating"
	case StateFactChecking:
		return "FactChecking"
	case StateSynthesizing:
		return "Synthesizing"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateTimedOut:
		return "TimedOut"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// =============================================================================
// Errors
// =============================================================================

// AlreadyRunningError is returned when Verify is called while a run is
// already active on the same instance. This is the pipeline's only hard
// error; everything else degrades into the result.
type AlreadyRunningError struct{}

// Error implements the error interface for AlreadyRunningError.
func (e *AlreadyRunningError) Error() string {
	return "a verification run is already active on this pipeline instance"
}

// IsAlreadyRunning checks if an error is an *AlreadyRunningError.
func IsAlreadyRunning(err error) bool {
	_, ok := err.(*AlreadyRunningError)
	return ok
}
