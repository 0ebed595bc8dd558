// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeVerifier returns a fixed outcome and replays canned progress events
// through its observer.
type fakeVerifier struct {
	out      *pipeline.Outcome
	err      error
	observer pipeline.ProgressFunc
	stages   []pipeline.State
}

func (f *fakeVerifier) Verify(ctx context.Context, claim string, vctx datatypes.VerificationContext) (*pipeline.Outcome, error) {
	if f.observer != nil {
		for _, s := range f.stages {
			f.observer(s, "working")
		}
	}
	return f.out, f.err
}

func factoryFor(f *fakeVerifier) VerifierFactory {
	return func(observer pipeline.ProgressFunc) (pipeline.Verifier, error) {
		f.observer = observer
		return f, nil
	}
}

func supportedResult() *datatypes.VerificationResult {
	return &datatypes.VerificationResult{
		IsVerified:       true,
		Confidence:       85,
		RiskLevel:        datatypes.RiskLow,
		FactCheckSummary: "The evidence supports this claim, see [1].",
		Evidence: []datatypes.EvidenceDocument{
			{Title: "t", Snippet: "s", SourceName: "a.example", URL: "https://a.example/1"},
		},
		SearchQueries:   []string{"q1"},
		EvidenceSources: 1,
	}
}

func postVerify(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleVerifyReturnsResult(t *testing.T) {
	fake := &fakeVerifier{out: &pipeline.Outcome{Result: supportedResult()}}
	router := gin.New()
	router.POST("/v1/verify", HandleVerify(factoryFor(fake), nil))

	w := postVerify(t, router, "/v1/verify", `{"claim":"the dam was completed in 2024"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result datatypes.VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.IsVerified)
	assert.Equal(t, 85, result.Confidence)
	assert.Equal(t, datatypes.RiskLow, result.RiskLevel)
	assert.Equal(t, 1, result.EvidenceSources)
}

func TestHandleVerifyCasual(t *testing.T) {
	fake := &fakeVerifier{out: &pipeline.Outcome{Casual: true, Reply: "Hello!"}}
	router := gin.New()
	router.POST("/v1/verify", HandleVerify(factoryFor(fake), nil))

	w := postVerify(t, router, "/v1/verify", `{"claim":"good morning"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CasualResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "casual", resp.Type)
	assert.Equal(t, "Hello!", resp.Message)
}

func TestHandleVerifyRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"claim":`},
		{"missing claim", `{}`},
		{"blank claim", `{"claim":"   "}`},
		{"oversized claim", `{"claim":"` + strings.Repeat("a", datatypes.MaxClaimLength+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeVerifier{out: &pipeline.Outcome{Result: supportedResult()}}
			router := gin.New()
			router.POST("/v1/verify", HandleVerify(factoryFor(fake), nil))

			w := postVerify(t, router, "/v1/verify", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleVerifyConflictOnReentrancy(t *testing.T) {
	fake := &fakeVerifier{err: &pipeline.AlreadyRunningError{}}
	router := gin.New()
	router.POST("/v1/verify", HandleVerify(factoryFor(fake), nil))

	w := postVerify(t, router, "/v1/verify", `{"claim":"a claim"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleVerifyStreamEmitsOrderedEvents(t *testing.T) {
	fake := &fakeVerifier{
		out: &pipeline.Outcome{Result: supportedResult()},
		stages: []pipeline.State{
			pipeline.StateClassifying,
			pipeline.StateAnalyzing,
			pipeline.StateCompleted,
		},
	}
	router := gin.New()
	router.POST("/v1/verify/stream", HandleVerifyStream(factoryFor(fake), nil))

	w := postVerify(t, router, "/v1/verify/stream", `{"claim":"the dam was completed in 2024"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	// Three status events, then the result, then done.
	first := strings.Index(body, "Classifying")
	second := strings.Index(body, "Analyzing")
	third := strings.Index(body, "Completed")
	resultAt := strings.Index(body, "event: result")
	doneAt := strings.Index(body, "event: done")
	require.True(t, first >= 0 && second >= 0 && third >= 0 && resultAt >= 0 && doneAt >= 0, body)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
	assert.Less(t, third, resultAt)
	assert.Less(t, resultAt, doneAt)
}

func TestHandleVerifyStreamCasual(t *testing.T) {
	fake := &fakeVerifier{
		out:    &pipeline.Outcome{Casual: true, Reply: "Hi there!"},
		stages: []pipeline.State{pipeline.StateClassifying, pipeline.StateCasualHandling, pipeline.StateCompleted},
	}
	router := gin.New()
	router.POST("/v1/verify/stream", HandleVerifyStream(factoryFor(fake), nil))

	w := postVerify(t, router, "/v1/verify/stream", `{"claim":"hello!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: casual")
	assert.Contains(t, w.Body.String(), "Hi there!")
}

func TestHandleVerifyStreamRejectsBadRequest(t *testing.T) {
	fake := &fakeVerifier{out: &pipeline.Outcome{Result: supportedResult()}}
	router := gin.New()
	router.POST("/v1/verify/stream", HandleVerifyStream(factoryFor(fake), nil))

	w := postVerify(t, router, "/v1/verify/stream", `{"claim":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Header().Get("Content-Type"), "text/event-stream")
}

func TestHealthCheckReturnsOK(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}
