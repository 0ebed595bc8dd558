// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers provides HTTP request handlers for the verifier service.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/observability"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/pipeline"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// tracer is the OpenTelemetry tracer for handler operations.
var tracer = otel.Tracer("truthspotter.verifier.handlers")

// VerifierFactory builds a fresh Verifier for one request. Each request
// gets its own instance so the single-run reentrancy guard never couples
// unrelated requests.
type VerifierFactory func(observer pipeline.ProgressFunc) (pipeline.Verifier, error)

// CasualResponse is the body returned for conversational input.
type CasualResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleVerify creates the gin handler for POST /v1/verify.
//
// # Description
//
// Synchronous verification: the full pipeline runs within the request and
// the final VerificationResult (or conversational reply) is the response
// body. Malformed or oversized requests fail with 400 before the pipeline
// starts; pipeline-internal failures never surface as HTTP errors, they
// degrade into the result.
//
// # Inputs
//
//   - newVerifier: Factory for per-request pipeline instances.
//   - metrics: Run metrics. May be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: HTTP handler function.
func HandleVerify(newVerifier VerifierFactory, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleVerify")
		defer span.End()
		start := time.Now()

		var req datatypes.VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordRun("verify", "rejected", time.Since(start).Seconds())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			metrics.RecordRun("verify", "rejected", time.Since(start).Seconds())
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		vctx := datatypes.NewVerificationContext(req.UserId, req.ConversationId)
		span.SetAttributes(attribute.String("request.id", vctx.RequestId))
		slog.Info("Received verification request", "requestId", vctx.RequestId)

		verifier, err := newVerifier(nil)
		if err != nil {
			slog.Error("Failed to construct verifier", "requestId", vctx.RequestId, "error", err)
			span.RecordError(err)
			metrics.RecordRun("verify", "rejected", time.Since(start).Seconds())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification unavailable"})
			return
		}

		out, err := verifier.Verify(ctx, req.Claim, vctx)
		if err != nil {
			// Only reentrancy surfaces here, and per-request instances
			// make it unreachable in practice.
			if pipeline.IsAlreadyRunning(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "a verification is already in progress"})
				return
			}
			slog.Error("Verification failed", "requestId", vctx.RequestId, "error", err)
			span.RecordError(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
			return
		}

		if out.Casual {
			metrics.RecordRun("verify", "casual", time.Since(start).Seconds())
			c.JSON(http.StatusOK, CasualResponse{Type: "casual", Message: out.Reply})
			return
		}

		metrics.RecordRun("verify", "completed", time.Since(start).Seconds())
		slog.Info("Verification complete",
			"requestId", vctx.RequestId,
			"isVerified", out.Result.IsVerified,
			"confidence", out.Result.Confidence,
			"riskLevel", out.Result.RiskLevel,
		)
		c.JSON(http.StatusOK, out.Result)
	}
}
