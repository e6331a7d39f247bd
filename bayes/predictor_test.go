package bayes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/core"
)

func sampleAnalysis() core.ConceptAnalysis {
	return core.ConceptAnalysis{
		Concept:    "sn2 substitution",
		Subject:    "chemistry",
		Topics:     []string{"reaction", "mechanism"},
		Complexity: 6,
	}
}

func TestPredict_ProbabilitiesSumToOne(t *testing.T) {
	p := New()
	rec, err := p.PredictBestModality(context.Background(), "user-1", sampleAnalysis())
	require.NoError(t, err)

	require.Len(t, rec.Probabilities, len(core.AllModalities))
	sum := 0.0
	for _, prob := range rec.Probabilities {
		sum += prob
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPredict_NewUserGetsAnimation(t *testing.T) {
	p := New()
	analysis := core.ConceptAnalysis{Concept: "osmosis", Subject: "biology", Complexity: 5}

	rec, err := p.PredictBestModality(context.Background(), "fresh-user", analysis)
	require.NoError(t, err)
	assert.Equal(t, core.ModalityAnimation, rec.Modality, "highest-prior modality wins absent other signal")
	assert.Len(t, rec.Fallbacks, 3)
	assert.NotContains(t, rec.Fallbacks, rec.Modality)
	assert.NotEmpty(t, rec.Reasoning)
}

func TestPredict_StructureConceptFavorsThreeD(t *testing.T) {
	p := New()
	analysis := core.ConceptAnalysis{Concept: "benzene molecule structure", Subject: "chemistry", Complexity: 5}

	rec, err := p.PredictBestModality(context.Background(), "user-s", analysis)
	require.NoError(t, err)
	// The 3d boost for structure concepts outweighs the animation prior.
	assert.Greater(t, rec.Probabilities[core.ModalityThreeD], rec.Probabilities[core.ModalitySimulation])
}

func TestPredict_SuccessHistoryShiftsRanking(t *testing.T) {
	p := New()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, p.UpdateBeliefsAfterInteraction(ctx, core.InteractionRecord{
			UserID:     "user-text",
			Concept:    "derivatives",
			Modality:   core.ModalityText,
			Understood: true,
			TimeSpent:  time.Minute,
		}))
		require.NoError(t, p.UpdateBeliefsAfterInteraction(ctx, core.InteractionRecord{
			UserID:     "user-text",
			Concept:    "derivatives",
			Modality:   core.ModalityAnimation,
			Understood: false,
			TimeSpent:  5 * time.Minute,
		}))
	}

	rec, err := p.PredictBestModality(ctx, "user-text", core.ConceptAnalysis{Concept: "derivatives", Subject: "math", Complexity: 4})
	require.NoError(t, err)
	assert.Greater(t, rec.Probabilities[core.ModalityText], rec.Probabilities[core.ModalityAnimation])
}

func TestUpdateBeliefs_Statistics(t *testing.T) {
	p := New()
	ctx := context.Background()

	require.NoError(t, p.UpdateBeliefsAfterInteraction(ctx, core.InteractionRecord{
		UserID: "u", Concept: "osmosis", Modality: core.ModalityDiagram,
		Understood: true, TimeSpent: 2 * time.Minute,
	}))
	require.NoError(t, p.UpdateBeliefsAfterInteraction(ctx, core.InteractionRecord{
		UserID: "u", Concept: "osmosis", Modality: core.ModalityDiagram,
		Understood: false, TimeSpent: 4 * time.Minute,
	}))

	b, err := p.Beliefs(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Attempts[core.ModalityDiagram])
	assert.Equal(t, 1, b.Successes[core.ModalityDiagram])
	assert.InDelta(t, 0.5, b.SuccessRate(core.ModalityDiagram), 1e-9)
	assert.Equal(t, 3*time.Minute, b.AvgTimes[core.ModalityDiagram])
	assert.False(t, b.LastUpdated.IsZero())
}

func TestUpdateBeliefs_ManualSwitchAppendsAdaptation(t *testing.T) {
	p := New()
	ctx := context.Background()

	require.NoError(t, p.UpdateBeliefsAfterInteraction(ctx, core.InteractionRecord{
		UserID:       "u2",
		Concept:      "mitosis",
		Modality:     core.ModalityVideo,
		Understood:   true,
		ManualSwitch: true,
		SwitchedFrom: core.ModalityText,
	}))

	history := p.AdaptationHistory("u2")
	require.Len(t, history, 1)
	assert.Equal(t, core.TriggerManualSwitch, history[0].Trigger)
	assert.Equal(t, core.ModalityText, history[0].FromModality)
	assert.Equal(t, core.ModalityVideo, history[0].ToModality)
	assert.True(t, history[0].Successful)
}

func TestUpdateBeliefs_MasteryEmitsEvent(t *testing.T) {
	var events []core.SystemEvent
	emitter := core.NewEmitter()
	emitter.Subscribe(func(ev core.SystemEvent) { events = append(events, ev) })

	p := New(func(o *Options) { o.Events = emitter })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.UpdateBeliefsAfterInteraction(ctx, core.InteractionRecord{
			UserID: "master", Concept: "recursion", Modality: core.ModalityAnimation,
			Understood: true, TimeSpent: time.Minute,
		}))
	}

	var mastered int
	for _, ev := range events {
		if ev.Type == core.EventConceptMastered {
			mastered++
		}
	}
	assert.Equal(t, 1, mastered, "mastery fires once the rate crosses the bar at five attempts")
}

func TestRecordAdaptation_FirstRecoveryEmitsMilestone(t *testing.T) {
	var events []core.SystemEvent
	emitter := core.NewEmitter()
	emitter.Subscribe(func(ev core.SystemEvent) { events = append(events, ev) })

	p := New(func(o *Options) { o.Events = emitter })
	ev := core.AdaptationEvent{
		Trigger:      core.TriggerSystemSuggestion,
		FromModality: core.ModalitySimulation,
		ToModality:   core.ModalityAnimation,
		Concept:      "orbital hybridization",
		UserID:       "u3",
		Successful:   true,
	}
	p.RecordAdaptation(ev)
	p.RecordAdaptation(ev)

	var milestones int
	for _, e := range events {
		if e.Type == core.EventLearningMilestone {
			milestones++
		}
	}
	assert.Equal(t, 1, milestones)
	assert.Len(t, p.AdaptationHistory("u3"), 2)
}

func TestConfidenceInterval(t *testing.T) {
	p := New()
	ctx := context.Background()

	low, high, err := p.ConfidenceInterval(ctx, "nobody", core.ModalityText)
	require.NoError(t, err)
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 1.0, high)

	for i := 0; i < 20; i++ {
		require.NoError(t, p.UpdateBeliefsAfterInteraction(ctx, core.InteractionRecord{
			UserID: "ci", Concept: "waves", Modality: core.ModalityText,
			Understood: i%2 == 0, TimeSpent: time.Minute,
		}))
	}
	low, high, err = p.ConfidenceInterval(ctx, "ci", core.ModalityText)
	require.NoError(t, err)
	assert.Greater(t, low, 0.0)
	assert.Less(t, high, 1.0)
	assert.Less(t, low, 0.5)
	assert.Greater(t, high, 0.5)
}

func TestBeliefs_CloneDoesNotAlias(t *testing.T) {
	p := New()
	ctx := context.Background()

	b1, err := p.Beliefs(ctx, "clone-user")
	require.NoError(t, err)
	b1.Preferences[core.ModalityText] = 0.9

	b2, err := p.Beliefs(ctx, "clone-user")
	require.NoError(t, err)
	assert.Zero(t, b2.Preferences[core.ModalityText])
}
