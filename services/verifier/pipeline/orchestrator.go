// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// fallbackCasualReply is used when the model cannot produce a
// conversational response.
const fallbackCasualReply = "Hi! Send me any factual claim and I will check it against current evidence for you."

// Pipeline is the staged Verifier implementation: a forward-only state
// machine running classification, analysis, research, curation,
// fact-checking, and synthesis in sequence.
//
// # Description
//
// One Pipeline serves one run at a time; a second Verify while one is
// active fails fast with *AlreadyRunningError. The whole run is bounded by
// a global deadline. The stage work runs in a goroutine; if the deadline
// fires first, Verify returns a best-effort partial result (unverified,
// HIGH risk) built from whatever the stages had gathered, and the worker
// notices the dead context between stages and stops.
//
// The run is deliberately detached from the caller's cancellation: a
// dropped streaming connection does not abort verification, so completed
// work still lands in the similarity store for future runs.
//
// # Thread Safety
//
// Safe for concurrent calls; only one proceeds.
type Pipeline struct {
	cfg      Config
	llm      llm.Client
	metrics  metricsRecorder
	observer ProgressFunc

	classifier  *Classifier
	analyzer    *Analyzer
	researcher  *Researcher
	curator     *Curator
	factChecker *FactChecker
	synthesizer *Synthesizer

	running atomic.Bool
}

// metricsRecorder is the slice of observability the pipeline itself needs.
type metricsRecorder interface {
	RecordStage(stage string, seconds float64)
	RecordVerdict(verdict string)
	RecordEvidence(count int)
	RecordDeadlineExceeded()
}

// Compile-time check.
var _ Verifier = (*Pipeline)(nil)

// New creates a staged Pipeline. Panics if any required dependency is nil.
// observer may be nil.
func New(deps Deps, cfg Config, observer ProgressFunc) *Pipeline {
	if deps.LLM == nil {
		panic("pipeline: New requires a non-nil llm client")
	}
	if deps.Search == nil {
		panic("pipeline: New requires a non-nil search client")
	}
	if deps.Store == nil {
		panic("pipeline: New requires a non-nil store")
	}
	cfg = cfg.withDefaults()
	curatorCfg := cfg.Curator
	if curatorCfg.MaxItems == 0 {
		curatorCfg.MaxItems = cfg.MaxEvidence
	}
	return &Pipeline{
		cfg:         cfg,
		llm:         deps.LLM,
		metrics:     deps.Metrics,
		observer:    observer,
		classifier:  NewClassifier(deps.LLM),
		analyzer:    NewAnalyzer(deps.LLM),
		researcher:  NewResearcher(deps.Search, deps.Store, cfg.NearestK),
		curator:     NewCurator(curatorCfg),
		factChecker: NewFactChecker(deps.LLM),
		synthesizer: NewSynthesizer(deps.LLM),
	}
}

// Verify implements Verifier.
func (p *Pipeline) Verify(ctx context.Context, claim string, vctx datatypes.VerificationContext) (*Outcome, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, &AlreadyRunningError{}
	}
	defer p.running.Store(false)

	// Detach from caller cancellation, keep trace context, bound by the
	// global deadline.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Deadline)
	defer cancel()

	run := newRunState(claim, vctx)
	done := make(chan *Outcome, 1)
	go func() {
		done <- p.run(runCtx, run)
	}()

	select {
	case out := <-done:
		if out == nil {
			// Worker noticed the dead context between stages.
			return p.timedOut(run), nil
		}
		return out, nil
	case <-runCtx.Done():
		return p.timedOut(run), nil
	}
}

// timedOut emits the terminal TimedOut transition and builds the partial
// result from the run's snapshot.
func (p *Pipeline) timedOut(run *runState) *Outcome {
	p.transition(StateTimedOut, "Verification deadline exceeded, returning partial result", run)
	if p.metrics != nil {
		p.metrics.RecordDeadlineExceeded()
	}
	queries, evidence := run.snapshot()
	result := FallbackResult(queries, evidence,
		"Verification could not finish before its deadline. The claim remains unverified; treat it with caution.")
	result.Confidence = 30
	result.RiskLevel = datatypes.RiskHigh
	return &Outcome{Result: result}
}

// run executes the stages in order. It returns nil when the context died
// mid-run and the orchestrator has already answered with a partial result.
func (p *Pipeline) run(ctx context.Context, run *runState) *Outcome {
	ctx, span := tracer.Start(ctx, "Pipeline.Verify", trace.WithAttributes(
		attribute.String("request.id", run.vctx.RequestId),
	))
	defer span.End()

	p.transition(StateClassifying, "Classifying the message", run)
	kind := p.classifier.Classify(ctx, run.claim)
	span.SetAttributes(attribute.String("claim.kind", string(kind)))

	if kind == QueryCasual {
		p.transition(StateCasualHandling, "Responding conversationally", run)
		reply := p.casualReply(ctx, run.claim)
		p.transition(StateCompleted, "Done", run)
		return &Outcome{Casual: true, Reply: reply}
	}

	if ctx.Err() != nil {
		return nil
	}
	p.transition(StateAnalyzing, "Decomposing the claim into checkable parts", run)
	analysis := p.analyzer.Analyze(ctx, run.claim)
	run.setAnalysis(analysis)

	if ctx.Err() != nil {
		return nil
	}
	p.transition(StateResearching, "Searching for evidence", run)
	pool, queries := p.researcher.Research(ctx, run.claim, analysis)
	run.setQueries(queries)

	if ctx.Err() != nil {
		return nil
	}
	p.transition(StateCurating, "Scoring and deduplicating evidence", run)
	evidence := p.curator.Curate(run.claim, pool)
	run.setEvidence(evidence)
	if p.metrics != nil {
		p.metrics.RecordEvidence(len(evidence))
	}

	if len(evidence) == 0 {
		// No usable evidence: degrade to an explicit unverified result
		// instead of adjudicating on nothing.
		p.transition(StateCompleted, "No usable evidence found", run)
		return &Outcome{Result: insufficientEvidenceResult(analysis, queries)}
	}

	if ctx.Err() != nil {
		return nil
	}
	p.transition(StateFactChecking, "Adjudicating the claim against the evidence", run)
	adjudication := p.factChecker.Check(ctx, run.claim, evidence)
	if p.metrics != nil {
		p.metrics.RecordVerdict(string(adjudication.Verdict))
	}

	if ctx.Err() != nil {
		return nil
	}
	p.transition(StateSynthesizing, "Composing the verification result", run)
	result := p.synthesizer.Synthesize(ctx, run.claim, analysis, evidence, adjudication, queries)

	p.transition(StateCompleted, "Verification complete", run)
	return &Outcome{Result: result}
}

// casualReply generates the short-circuit conversational response.
func (p *Pipeline) casualReply(ctx context.Context, claim string) string {
	reply, err := p.llm.Complete(ctx, casualPrompt(claim), llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.7),
		MaxTokens:   llm.IntPtr(120),
	})
	reply = trimmed(reply)
	if err != nil || reply == "" {
		if err != nil {
			slog.Warn("casual reply generation failed, using canned reply", "error", err)
		}
		return fallbackCasualReply
	}
	return reply
}

// transition records a forward state change: stage metrics, a log line,
// and the synchronous progress event, in that order, before any work of
// the new state begins.
func (p *Pipeline) transition(next State, message string, run *runState) {
	prev, since, advanced := run.advance(next)
	if !advanced {
		// A terminal state already won; a late worker must stay silent.
		return
	}
	if p.metrics != nil && prev != StateIdle {
		p.metrics.RecordStage(prev.String(), time.Since(since).Seconds())
	}
	slog.Info("pipeline stage transition",
		"request_id", run.vctx.RequestId,
		"from", prev.String(),
		"to", next.String(),
	)
	if p.observer != nil {
		p.observer(next, message)
	}
}

// trimmed strips whitespace and the quotes models sometimes wrap short
// replies in.
func trimmed(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// insufficientEvidenceResult is the degraded terminal result when research
// and curation turn up nothing usable.
func insufficientEvidenceResult(analysis *datatypes.ClaimAnalysis, queries []string) *datatypes.VerificationResult {
	return &datatypes.VerificationResult{
		IsVerified: false,
		Confidence: 30,
		RiskLevel:  datatypes.RiskHigh,
		Analysis:   analysisNarrative(analysis),
		FactCheckSummary: "No sufficiently relevant evidence could be found for this claim. " +
			"It remains unverified; treat it with caution.",
		SearchQueries:   queries,
		EvidenceSources: 0,
	}
}

// =============================================================================
// Run state
// =============================================================================

// runState is the mutable state of one run, mutex-guarded because the
// worker goroutine writes it while the orchestrator may snapshot it on
// deadline expiry.
type runState struct {
	mu    sync.Mutex
	claim string
	vctx  datatypes.VerificationContext

	state     State
	enteredAt time.Time

	analysis *datatypes.ClaimAnalysis
	queries  []string
	evidence []datatypes.EvidenceDocument
}

func newRunState(claim string, vctx datatypes.VerificationContext) *runState {
	return &runState{
		claim:     claim,
		vctx:      vctx,
		state:     StateIdle,
		enteredAt: time.Now(),
	}
}

// advance moves to next and returns the previous state and when it was
// entered. Terminal states win races: once Completed/Failed/TimedOut is
// reached the state no longer changes.
func (r *runState) advance(next State) (State, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, since := r.state, r.enteredAt
	if prev == StateCompleted || prev == StateFailed || prev == StateTimedOut {
		return prev, since, false
	}
	r.state = next
	r.enteredAt = time.Now()
	return prev, since, true
}

func (r *runState) setAnalysis(a *datatypes.ClaimAnalysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysis = a
}

func (r *runState) setQueries(q []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = q
}

func (r *runState) setEvidence(e []datatypes.EvidenceDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evidence = e
}

// snapshot returns copies of the queries and evidence gathered so far.
func (r *runState) snapshot() ([]string, []datatypes.EvidenceDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queries := make([]string, len(r.queries))
	copy(queries, r.queries)
	evidence := make([]datatypes.EvidenceDocument, len(r.evidence))
	copy(evidence, r.evidence)
	return queries, evidence
}
