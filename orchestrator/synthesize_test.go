package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tutormesh/tutormesh/core"
)

func TestBuildPlan_RuleTable(t *testing.T) {
	q := core.ProcessedQuery{
		NeedsExplanation:   true,
		NeedsVisualization: true,
		NeedsAssessment:    true,
		NeedsResources:     true,
		NeedsGuidance:      true,
	}
	stages := buildPlan(q)
	assert.Equal(t, []core.AgentType{core.AgentContentSpecialist}, stages[0])
	assert.ElementsMatch(t, []core.AgentType{core.AgentVisualLearning, core.AgentAssessment, core.AgentResource}, stages[1])
	assert.Equal(t, []core.AgentType{core.AgentPedagogy}, stages[2])

	minimal := buildPlan(core.ProcessedQuery{NeedsExplanation: true})
	assert.Equal(t, []core.AgentType{core.AgentContentSpecialist}, minimal[0])
	assert.Empty(t, minimal[1])
	assert.Empty(t, minimal[2])
}

func TestSynthesize_MeanConfidenceAndDedup(t *testing.T) {
	q := core.ProcessedQuery{Intent: "explanation"}
	contributions := map[core.AgentType]core.Contribution{
		core.AgentConversation: {
			Text:       "Let's dig in.",
			Confidence: 0.8,
			Sources:    []string{"conversation"},
			FollowUps:  []string{"More detail?"},
		},
		core.AgentContentSpecialist: {
			Text:       "The mechanism proceeds in one step.",
			Confidence: 0.6,
			Sources:    []string{"content_specialist", "conversation"},
			FollowUps:  []string{"More detail?", "Try a problem?"},
		},
	}

	resp := synthesize(q, contributions)
	assert.Equal(t, core.ResponseExplanation, resp.Type)
	assert.InDelta(t, 0.7, resp.Confidence, 1e-9)
	assert.Equal(t, []string{"conversation", "content_specialist"}, resp.Sources)
	assert.Equal(t, []string{"More detail?", "Try a problem?"}, resp.FollowUpSuggestions)
	assert.Contains(t, resp.Text, "Let's dig in.")
	assert.Contains(t, resp.Text, "mechanism")
}

func TestSynthesize_DefaultConfidence(t *testing.T) {
	resp := synthesize(core.ProcessedQuery{}, map[core.AgentType]core.Contribution{
		core.AgentVisualLearning: {Visualizations: []core.Visualization{{Kind: "diagram"}}},
	})
	assert.InDelta(t, 0.7, resp.Confidence, 1e-9, "no reported confidence falls back to 0.7")
}

func TestResponseType_Precedence(t *testing.T) {
	assert.Equal(t, core.ResponseAssessment, responseType(core.ProcessedQuery{
		NeedsAssessment: true, NeedsResources: true, WantsEncouragement: true,
	}))
	assert.Equal(t, core.ResponseResources, responseType(core.ProcessedQuery{
		NeedsResources: true, WantsFeedback: true,
	}))
	assert.Equal(t, core.ResponseEncouragement, responseType(core.ProcessedQuery{
		WantsEncouragement: true, WantsFeedback: true,
	}))
	assert.Equal(t, core.ResponseFeedback, responseType(core.ProcessedQuery{WantsFeedback: true}))
	assert.Equal(t, core.ResponseExplanation, responseType(core.ProcessedQuery{}))
}
