// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/observability"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/pipeline"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// keepAliveInterval paces SSE comment pings during long stages. Load
// balancers commonly cut idle connections at 60s.
const keepAliveInterval = 15 * time.Second

// HandleVerifyStream creates the gin handler for POST /v1/verify/stream.
//
// # Description
//
// Streaming verification over SSE. One status event is emitted per stage
// transition, in order, followed by a single terminal result (or casual)
// event and a done event. Events carry a hash chain so consumers can
// detect dropped or reordered events.
//
// The pipeline run is detached from the connection: a client disconnect
// stops event delivery but the run finishes in the background, so its
// evidence still lands in the similarity store.
//
// # Inputs
//
//   - newVerifier: Factory for per-request pipeline instances.
//   - metrics: Run metrics. May be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: HTTP handler function.
func HandleVerifyStream(newVerifier VerifierFactory, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleVerifyStream")
		defer span.End()
		start := time.Now()

		var req datatypes.VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordRun("verify_stream", "rejected", time.Since(start).Seconds())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			metrics.RecordRun("verify_stream", "rejected", time.Since(start).Seconds())
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		vctx := datatypes.NewVerificationContext(req.UserId, req.ConversationId)
		span.SetAttributes(attribute.String("request.id", vctx.RequestId))
		metrics.StreamStarted()
		defer metrics.StreamEnded()

		// Progress events flow straight from the pipeline's synchronous
		// transitions; write failures after a disconnect are logged and
		// dropped while the run continues.
		observer := func(stage pipeline.State, message string) {
			if err := writer.WriteStatus(stage.String(), message); err != nil {
				slog.Debug("Dropping progress event, client gone",
					"requestId", vctx.RequestId, "stage", stage.String(), "error", err)
			}
		}

		verifier, err := newVerifier(observer)
		if err != nil {
			slog.Error("Failed to construct verifier", "requestId", vctx.RequestId, "error", err)
			span.RecordError(err)
			_ = writer.WriteError("verification unavailable")
			return
		}

		// Keepalive pings cover gaps between stage transitions.
		stopPing := make(chan struct{})
		go func() {
			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					_ = writer.WriteKeepAlive()
				case <-stopPing:
					return
				}
			}
		}()

		out, err := verifier.Verify(ctx, req.Claim, vctx)
		close(stopPing)
		if err != nil {
			slog.Error("Streaming verification failed", "requestId", vctx.RequestId, "error", err)
			span.RecordError(err)
			metrics.RecordRun("verify_stream", "rejected", time.Since(start).Seconds())
			_ = writer.WriteError("verification failed")
			return
		}

		if out.Casual {
			metrics.RecordRun("verify_stream", "casual", time.Since(start).Seconds())
			_ = writer.WriteCasual(out.Reply)
		} else {
			metrics.RecordRun("verify_stream", "completed", time.Since(start).Seconds())
			_ = writer.WriteResult(out.Result)
		}
		_ = writer.WriteDone(vctx.RequestId)
	}
}
