// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SSEWriter writes Server-Sent Events for a streaming verification run.
//
// # Description
//
// SSEWriter abstracts SSE serialization and writing from HTTP response
// mechanics. Each event is automatically assigned:
//   - Id: UUID v4 for ordering and deduplication
//   - CreatedAt: Unix timestamp in milliseconds
//   - Hash: SHA-256 of event content for integrity
//   - PrevHash: hash of the previous event, forming a chain
//
// The hash chain lets consumers verify that no event was dropped or
// reordered in transit.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the pipeline and
// keepalive ticker may write from different goroutines.
//
// # Assumptions
//
//   - Caller has set SSE headers via SetSSEHeaders before the first write.
type SSEWriter interface {
	// WriteEvent writes a single SSE event. Id, CreatedAt, Hash, and
	// PrevHash are populated automatically.
	WriteEvent(event datatypes.StreamEvent) error

	// WriteStatus writes a stage-progress event with the given message.
	WriteStatus(stage, message string) error

	// WriteResult writes the terminal result event.
	WriteResult(result *datatypes.VerificationResult) error

	// WriteCasual writes the conversational short-circuit reply.
	WriteCasual(reply string) error

	// WriteError writes an error event. The message must already be
	// sanitized for clients.
	WriteError(errMsg string) error

	// WriteDone writes the final done event carrying the request id.
	WriteDone(requestID string) error

	// WriteKeepAlive sends an SSE comment to keep the connection alive.
	// Comments are not events and do not advance the hash chain.
	WriteKeepAlive() error
}

// =============================================================================
// Implementation
// =============================================================================

// sseWriter emits SSE-formatted events over an http.ResponseWriter.
//
// Each event is written as:
//
//	event: {type}
//	data: {json}
//
// # Thread Safety
//
// Thread-safe via mutex; hash chain integrity holds across concurrent
// writers.
type sseWriter struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// NewSSEWriter creates an SSEWriter over w. Returns an error if w does not
// support http.Flusher.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// WriteEvent implements SSEWriter.
func (w *sseWriter) WriteEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event.Id = uuid.New().String()
	event.CreatedAt = time.Now().UnixMilli()
	event.PrevHash = w.prevHash
	event.Hash = computeEventHash(event)
	w.prevHash = event.Hash

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// computeEventHash hashes all content fields. The Hash field itself must
// still be empty when this runs.
func computeEventHash(event datatypes.StreamEvent) string {
	resultJSON := ""
	if event.Result != nil {
		if data, err := json.Marshal(event.Result); err == nil {
			resultJSON = string(data)
		}
	}

	hashInput := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s|%s",
		event.Id,
		event.Type,
		event.CreatedAt,
		event.PrevHash,
		event.Message,
		event.Error,
		event.RequestId,
		resultJSON,
	)
	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

// WriteStatus implements SSEWriter.
func (w *sseWriter) WriteStatus(stage, message string) error {
	return w.WriteEvent(datatypes.StreamEvent{
		Type:    "status",
		Message: fmt.Sprintf("%s: %s", stage, message),
	})
}

// WriteResult implements SSEWriter.
func (w *sseWriter) WriteResult(result *datatypes.VerificationResult) error {
	return w.WriteEvent(datatypes.StreamEvent{
		Type:   "result",
		Result: result,
	})
}

// WriteCasual implements SSEWriter.
func (w *sseWriter) WriteCasual(reply string) error {
	return w.WriteEvent(datatypes.StreamEvent{
		Type:    "casual",
		Message: reply,
	})
}

// WriteError implements SSEWriter.
func (w *sseWriter) WriteError(errMsg string) error {
	// Message carries the consumer-facing payload; Error stays populated
	// for clients that key on it.
	return w.WriteEvent(datatypes.StreamEvent{
		Type:    "error",
		Message: errMsg,
		Error:   errMsg,
	})
}

// WriteDone implements SSEWriter.
func (w *sseWriter) WriteDone(requestID string) error {
	return w.WriteEvent(datatypes.StreamEvent{
		Type:      "done",
		RequestId: requestID,
	})
}

// WriteKeepAlive implements SSEWriter.
func (w *sseWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// SetSSEHeaders configures response headers for SSE streaming. Must run
// before any body write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

var _ SSEWriter = (*sseWriter)(nil)
