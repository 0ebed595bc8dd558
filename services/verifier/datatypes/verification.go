// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxClaimLength is the longest claim accepted by the service. Longer input
// is rejected before the pipeline starts.
const MaxClaimLength = 1000

// =============================================================================
// Request
// =============================================================================

// VerifyRequest is the body of POST /v1/verify and /v1/verify/stream.
type VerifyRequest struct {
	Claim          string `json:"claim"`
	UserId         string `json:"user_id,omitempty"`
	ConversationId string `json:"conversation_id,omitempty"`
}

// Validate checks the request contract: one non-empty claim of at most
// MaxClaimLength characters.
func (r *VerifyRequest) Validate() error {
	claim := strings.TrimSpace(r.Claim)
	if claim == "" {
		return fmt.Errorf("claim is required")
	}
	if len(claim) > MaxClaimLength {
		return fmt.Errorf("claim exceeds %d characters (got %d)", MaxClaimLength, len(claim))
	}
	return nil
}

// =============================================================================
// Correlation metadata
// =============================================================================

// VerificationContext carries correlation metadata for one run. It is not
// business state; stages only use it for logging and tracing.
type VerificationContext struct {
	RequestId      string    `json:"requestId"`
	UserId         string    `json:"userId,omitempty"`
	ConversationId string    `json:"conversationId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewVerificationContext creates a context with a fresh request id.
func NewVerificationContext(userId, conversationId string) VerificationContext {
	return VerificationContext{
		RequestId:      uuid.New().String(),
		UserId:         userId,
		ConversationId: conversationId,
		Timestamp:      time.Now(),
	}
}

// =============================================================================
// Verdicts and risk levels
// =============================================================================

// Verdict is the tri-state adjudication outcome.
type Verdict string

const (
	VerdictSupported    Verdict = "SUPPORTED"
	VerdictRefuted      Verdict = "REFUTED"
	VerdictInconclusive Verdict = "INCONCLUSIVE"
)

// RiskLevel is the coarse uncertainty classification attached to a result.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// riskRank orders risk levels for the "at least MEDIUM" clamp.
func riskRank(r RiskLevel) int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 1
	}
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if riskRank(a) >= riskRank(b) {
		return a
	}
	return b
}

// Adjudication is the fact-checking stage's output.
type Adjudication struct {
	Verdict   Verdict `json:"verdict"`
	Reasoning string  `json:"reasoning"`
}

// =============================================================================
// Result
// =============================================================================

// VerificationResult is the terminal output of one verification run.
// Exactly one result (or a fallback substitute) is produced per run.
type VerificationResult struct {
	IsVerified       bool               `json:"isVerified"`
	Confidence       int                `json:"confidence"`
	RiskLevel        RiskLevel          `json:"riskLevel"`
	Analysis         string             `json:"analysis"`
	FactCheckSummary string             `json:"factCheckSummary"`
	Evidence         []EvidenceDocument `json:"evidence"`
	SearchQueries    []string           `json:"searchQueries"`
	EvidenceSources  int                `json:"evidenceSources"`
}

// ClampConfidence forces confidence into [0,100].
func (r *VerificationResult) ClampConfidence() {
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 100 {
		r.Confidence = 100
	}
}

// =============================================================================
// Streaming events
// =============================================================================

// StreamEvent is one SSE event on the streaming verification channel.
//
// Each event carries a hash chain (Hash over its content, PrevHash linking
// to the previous event) so consumers can verify nothing was dropped or
// reordered in transit.
type StreamEvent struct {
	Id        string              `json:"id,omitempty"`
	Type      string              `json:"type"`
	CreatedAt int64               `json:"created_at,omitempty"`
	Hash      string              `json:"hash,omitempty"`
	PrevHash  string              `json:"prev_hash,omitempty"`
	Message   string              `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
	RequestId string              `json:"request_id,omitempty"`
	Result    *VerificationResult `json:"result,omitempty"`
}
