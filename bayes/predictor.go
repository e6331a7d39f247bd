package bayes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
)

// masteryRate and masteryMinAttempts gate the concept_mastered event.
const (
	masteryRate        = 0.8
	masteryMinAttempts = 5
)

// Options configures a Predictor.
type Options struct {
	// Store persists belief records across restarts. Optional; without one
	// the predictor is purely in-process.
	Store core.UserModelStore
	// Events receives learning milestone events. Optional.
	Events *core.Emitter
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Predictor holds per-user belief state and ranks modalities for concepts.
// Safe for concurrent use; each user's beliefs are mutated only under the
// predictor's lock and never aliased across users.
type Predictor struct {
	mu          sync.Mutex
	users       map[string]*core.BayesianBeliefs
	adaptations map[string][]core.AdaptationEvent
	recovered   map[string]bool

	store  core.UserModelStore
	events *core.Emitter
	logger logging.Logger
}

// New constructs a Predictor.
func New(optFns ...func(o *Options)) *Predictor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Predictor{
		users:       make(map[string]*core.BayesianBeliefs),
		adaptations: make(map[string][]core.AdaptationEvent),
		recovered:   make(map[string]bool),
		store:       opts.Store,
		events:      opts.Events,
		logger:      opts.Logger,
	}
}

// beliefs returns the live record for userID, loading from the store on
// first sight and creating a neutral record for unknown users. Caller must
// hold p.mu.
func (p *Predictor) beliefs(ctx context.Context, userID string) (*core.BayesianBeliefs, error) {
	if b, ok := p.users[userID]; ok {
		return b, nil
	}
	if p.store != nil {
		stored, err := p.store.Load(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("bayes: load beliefs for %s: %w", userID, err)
		}
		if stored != nil {
			p.users[userID] = stored
			return stored, nil
		}
	}
	b := core.NewBeliefs(userID)
	p.users[userID] = b
	return b, nil
}

// PredictBestModality ranks the seven modalities for the concept and returns
// the top choice with its three-deep fallback chain. The probabilities in
// the result sum to 1.
func (p *Predictor) PredictBestModality(ctx context.Context, userID string, analysis core.ConceptAnalysis) (core.Recommendation, error) {
	p.mu.Lock()
	b, err := p.beliefs(ctx, userID)
	if err != nil {
		p.mu.Unlock()
		return core.Recommendation{}, err
	}
	snapshot := b.Clone()
	p.mu.Unlock()

	probs := scoreModalities(snapshot, analysis)
	ranked := rankModalities(probs)
	best := ranked[0]

	rec := core.Recommendation{
		Concept:       analysis.Concept,
		Modality:      best,
		Confidence:    probs[best],
		Reasoning:     buildReasoning(snapshot, analysis, best),
		Fallbacks:     append([]core.Modality(nil), ranked[1:4]...),
		Probabilities: probs,
	}
	p.logger.Debug("modality predicted",
		"user_id", userID, "concept", analysis.Concept,
		"modality", best, "confidence", probs[best])
	return rec, nil
}

// UpdateBeliefsAfterInteraction folds one observed interaction into the
// user's beliefs: success counts, running average time, preference nudges
// and learning speed. A manual modality switch additionally appends an
// AdaptationEvent and strengthens the chosen modality's preference.
func (p *Predictor) UpdateBeliefsAfterInteraction(ctx context.Context, rec core.InteractionRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("bayes: interaction without user id")
	}

	p.mu.Lock()
	b, err := p.beliefs(ctx, rec.UserID)
	if err != nil {
		p.mu.Unlock()
		return err
	}

	m := rec.Modality
	wasMastered := b.Attempts[m] >= masteryMinAttempts && b.SuccessRate(m) >= masteryRate
	b.Attempts[m]++
	if rec.Understood {
		b.Successes[m]++
		b.Preferences[m] = clamp01(b.Preferences[m] + 0.05)
	} else {
		b.Preferences[m] = clamp01(b.Preferences[m] - 0.02)
	}
	if rec.TimeSpent > 0 {
		prev := b.AvgTimes[m]
		n := time.Duration(b.Attempts[m])
		b.AvgTimes[m] = prev + (rec.TimeSpent-prev)/n
		if rec.Understood {
			observed := float64(baselineTime) / float64(rec.TimeSpent)
			if observed < 0.5 {
				observed = 0.5
			} else if observed > 2 {
				observed = 2
			}
			b.LearningSpeed = 0.9*b.LearningSpeed + 0.1*observed
		}
	}
	if rec.ManualSwitch {
		b.Preferences[m] = clamp01(b.Preferences[m] + 0.10)
		ev := core.AdaptationEvent{
			Timestamp:    time.Now().UTC(),
			Trigger:      core.TriggerManualSwitch,
			FromModality: rec.SwitchedFrom,
			ToModality:   m,
			Concept:      rec.Concept,
			UserID:       rec.UserID,
			Successful:   rec.Understood,
		}
		p.adaptations[rec.UserID] = append(p.adaptations[rec.UserID], ev)
	}
	b.LastUpdated = time.Now().UTC()

	mastered := !wasMastered && b.Attempts[m] >= masteryMinAttempts && b.SuccessRate(m) >= masteryRate
	snapshot := b.Clone()
	p.mu.Unlock()

	if mastered {
		p.events.Emit(core.SystemEvent{
			Type:    core.EventConceptMastered,
			UserID:  rec.UserID,
			Concept: rec.Concept,
			Detail:  map[string]string{"modality": string(m)},
		})
	}
	if p.store != nil {
		if err := p.store.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("bayes: save beliefs for %s: %w", rec.UserID, err)
		}
	}
	return nil
}

// RecordAdaptation appends an engine-driven modality transition to the
// user's history. The first recovered fallback per user emits a
// learning_milestone event.
func (p *Predictor) RecordAdaptation(ev core.AdaptationEvent) {
	if ev.UserID == "" {
		return
	}
	p.mu.Lock()
	p.adaptations[ev.UserID] = append(p.adaptations[ev.UserID], ev)
	firstRecovery := ev.Successful && ev.Trigger == core.TriggerSystemSuggestion && !p.recovered[ev.UserID]
	if firstRecovery {
		p.recovered[ev.UserID] = true
	}
	p.mu.Unlock()

	if firstRecovery {
		p.events.Emit(core.SystemEvent{
			Type:    core.EventLearningMilestone,
			UserID:  ev.UserID,
			Concept: ev.Concept,
			Detail: map[string]string{
				"from_modality": string(ev.FromModality),
				"to_modality":   string(ev.ToModality),
			},
		})
	}
}

// AdaptationHistory returns a copy of the user's transition log, oldest
// first.
func (p *Predictor) AdaptationHistory(userID string) []core.AdaptationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.AdaptationEvent, len(p.adaptations[userID]))
	copy(out, p.adaptations[userID])
	return out
}

// ConfidenceInterval returns the Wilson score interval over the user's
// success observations for one modality. It reports uncertainty only; the
// selection never consults it.
func (p *Predictor) ConfidenceInterval(ctx context.Context, userID string, m core.Modality) (low, high float64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.beliefs(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	low, high = wilsonInterval(b.Successes[m], b.Attempts[m])
	return low, high, nil
}

// Beliefs returns a copy of the user's current belief record.
func (p *Predictor) Beliefs(ctx context.Context, userID string) (*core.BayesianBeliefs, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.beliefs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
