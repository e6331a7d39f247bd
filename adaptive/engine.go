package adaptive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/telemetry"
)

// ErrChainExhausted wraps the failure raised when every candidate modality
// failed for a concept.
var ErrChainExhausted = errors.New("adaptive: fallback chain exhausted")

// maxCandidates bounds the fallback chain including the first choice.
const maxCandidates = 4

// AdaptationRecorder receives modality transitions for the belief history.
// *bayes.Predictor satisfies it.
type AdaptationRecorder interface {
	RecordAdaptation(ev core.AdaptationEvent)
}

// Options configures an Engine.
type Options struct {
	// Generators is the modality registry. Defaults to the static set.
	Generators map[core.Modality]Generator
	// Ranker orders candidates per call. Defaults to StaticRanker.
	Ranker Ranker
	// Recorder receives the transition events. Optional.
	Recorder AdaptationRecorder
	// Events receives generation lifecycle events. Optional.
	Events *core.Emitter
	// Telemetry counts fallback retries. Optional.
	Telemetry *telemetry.Recorder
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// AttemptTimeout bounds one generation attempt.
	AttemptTimeout time.Duration
	// ConfusionThreshold is how long a session may sit on one piece of
	// content before a confusion_suspected event fires.
	ConfusionThreshold time.Duration
}

// Engine walks the modality fallback chain for one concept at a time.
// Safe for concurrent use.
type Engine struct {
	generators map[core.Modality]Generator
	ranker     Ranker
	recorder   AdaptationRecorder
	events     *core.Emitter
	telemetry  *telemetry.Recorder
	logger     logging.Logger

	attemptTimeout     time.Duration
	confusionThreshold time.Duration
	sessions           *sessionTable
}

// NewEngine constructs an Engine.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Ranker:             StaticRanker{},
		Logger:             logging.NoOpLogger{},
		AttemptTimeout:     30 * time.Second,
		ConfusionThreshold: 45 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Generators == nil {
		opts.Generators = StaticGenerators()
	}
	if opts.Ranker == nil {
		opts.Ranker = StaticRanker{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	e := &Engine{
		generators:         opts.Generators,
		ranker:             opts.Ranker,
		recorder:           opts.Recorder,
		events:             opts.Events,
		telemetry:          opts.Telemetry,
		logger:             opts.Logger,
		attemptTimeout:     opts.AttemptTimeout,
		confusionThreshold: opts.ConfusionThreshold,
	}
	e.sessions = newSessionTable(e.confusionThreshold, opts.Events)
	return e
}

// GenerateAdaptiveContent produces content for the concept in the best
// available modality. Candidates come from the ranker (at most four, never
// repeating); each gets one bounded attempt, and the first success wins. A
// transition between candidates is recorded after the destination attempt
// settles, carrying the destination's outcome. When every candidate fails
// the returned error wraps ErrChainExhausted and names the concept.
func (e *Engine) GenerateAdaptiveContent(ctx context.Context, userID string, analysis core.ConceptAnalysis) (core.GeneratedContent, error) {
	rec, err := e.rank(ctx, userID, analysis)
	if err != nil {
		return core.GeneratedContent{}, fmt.Errorf("adaptive: rank modalities for %q: %w", analysis.Concept, err)
	}
	candidates := buildChain(rec)

	var lastErr error
	for i, m := range candidates {
		content, attemptErr := e.attempt(ctx, m, analysis)

		if i > 0 {
			e.recordTransition(userID, analysis.Concept, candidates[i-1], m, attemptErr == nil)
		}
		if attemptErr == nil {
			e.logger.Info("content generated",
				"user_id", userID, "concept", analysis.Concept,
				"modality", m, "attempt", i+1)
			return content, nil
		}

		lastErr = attemptErr
		e.logger.Warn("generation attempt failed",
			"user_id", userID, "concept", analysis.Concept,
			"modality", m, "attempt", i+1, "error", attemptErr)
		if i < len(candidates)-1 {
			e.telemetry.RecordFallback()
		}
	}

	return core.GeneratedContent{}, fmt.Errorf("%w: concept %q after %d attempts: %v",
		ErrChainExhausted, analysis.Concept, len(candidates), lastErr)
}

// rank consults the per-user ranker when a user id is present and the static
// table otherwise.
func (e *Engine) rank(ctx context.Context, userID string, analysis core.ConceptAnalysis) (core.Recommendation, error) {
	if userID == "" {
		return StaticRanker{}.PredictBestModality(ctx, userID, analysis)
	}
	return e.ranker.PredictBestModality(ctx, userID, analysis)
}

// buildChain returns the recommendation plus its fallbacks, capped at
// maxCandidates with duplicates removed.
func buildChain(rec core.Recommendation) []core.Modality {
	seen := map[core.Modality]bool{rec.Modality: true}
	chain := []core.Modality{rec.Modality}
	for _, m := range rec.Fallbacks {
		if len(chain) == maxCandidates {
			break
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
	}
	return chain
}

// attempt runs one generator bounded by the attempt timeout. The result
// channel is buffered so a late result is dropped without leaking the
// goroutine; the first outcome wins.
func (e *Engine) attempt(ctx context.Context, m core.Modality, analysis core.ConceptAnalysis) (core.GeneratedContent, error) {
	gen, ok := e.generators[m]
	if !ok {
		return core.GeneratedContent{}, fmt.Errorf("no generator registered for %s", m)
	}

	actx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	type result struct {
		content core.GeneratedContent
		err     error
	}
	done := make(chan result, 1)
	go func() {
		content, err := gen.Generate(actx, analysis)
		done <- result{content: content, err: err}
	}()

	select {
	case r := <-done:
		return r.content, r.err
	case <-actx.Done():
		return core.GeneratedContent{}, fmt.Errorf("generation in %s timed out after %s", m, e.attemptTimeout)
	}
}

func (e *Engine) recordTransition(userID, concept string, from, to core.Modality, successful bool) {
	ev := core.AdaptationEvent{
		Timestamp:    time.Now().UTC(),
		Trigger:      core.TriggerSystemSuggestion,
		FromModality: from,
		ToModality:   to,
		Concept:      concept,
		UserID:       userID,
		Successful:   successful,
	}
	if e.recorder != nil {
		e.recorder.RecordAdaptation(ev)
	}
}

// StartAdaptiveSession begins the confusion timer for one user/content pair.
// A session left open past the threshold emits a confusion_suspected event;
// the signal is advisory and triggers no automatic switch.
func (e *Engine) StartAdaptiveSession(userID, contentID, concept string) {
	e.sessions.start(userID, contentID, concept)
}

// StopAdaptiveSession ends the session and cancels its confusion timer.
// Stopping an unknown session is a no-op.
func (e *Engine) StopAdaptiveSession(userID, contentID string) {
	e.sessions.stop(userID, contentID)
}

// Close cancels all outstanding confusion timers.
func (e *Engine) Close() {
	e.sessions.closeAll()
}
