package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/provider"
)

func chemistryQuery() core.ProcessedQuery {
	return core.ProcessedQuery{
		Intent:     "explanation",
		Subject:    "chemistry",
		Concepts:   []string{"sn2 substitution"},
		Complexity: 6,
	}
}

func TestContentSpecialist_Explains(t *testing.T) {
	deps, _ := newTestDeps(t)
	a := NewContentSpecialistAgent(deps)

	msg := core.NewRequest(core.AgentOrchestrator, core.AgentContentSpecialist, "w1",
		core.ExplainConceptPayload{Query: chemistryQuery()})

	payload, err := a.Process(context.Background(), msg)
	require.NoError(t, err)
	explanation, ok := payload.(core.ExplanationPayload)
	require.True(t, ok)
	assert.Contains(t, explanation.Contribution.Text, "sn2 substitution")
	assert.Equal(t, []string{"content_specialist"}, explanation.Contribution.Sources)
	assert.Greater(t, explanation.Contribution.Confidence, 0.0)
}

func TestContentSpecialist_AIFailureIsServiceError(t *testing.T) {
	ai := provider.NewStaticAI()
	ai.SetFailure(errors.New("connection refused"))
	deps, _ := newTestDeps(t)
	deps.Services = provider.NewLayer(func(o *provider.Options) { o.AI = ai })
	a := NewContentSpecialistAgent(deps)

	msg := core.NewRequest(core.AgentOrchestrator, core.AgentContentSpecialist, "w2",
		core.ExplainConceptPayload{Query: chemistryQuery()})

	_, err := a.Process(context.Background(), msg)
	var agentErr *core.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, core.ErrCodeServiceConnection, agentErr.Code)
	assert.True(t, agentErr.Retryable)
}

func TestVisualLearning_KindSelection(t *testing.T) {
	deps, _ := newTestDeps(t)
	a := NewVisualLearningAgent(deps)

	tests := []struct {
		concept    string
		complexity int
		want       string
	}{
		{"sn2 reaction mechanism", 5, "animation"},
		{"benzene molecule structure", 4, "3d"},
		{"pythagorean theorem", 3, "diagram"},
		{"fourier series", 8, "animation"},
	}

	for _, tc := range tests {
		t.Run(tc.want+"/"+tc.concept, func(t *testing.T) {
			q := core.ProcessedQuery{Concepts: []string{tc.concept}, Complexity: tc.complexity, Subject: "general"}
			msg := core.NewRequest(core.AgentOrchestrator, core.AgentVisualLearning, core.NewID(),
				core.RenderVisualizationPayload{Query: q})

			payload, err := a.Process(context.Background(), msg)
			require.NoError(t, err)
			vis, ok := payload.(core.VisualizationPayload)
			require.True(t, ok)
			require.Len(t, vis.Contribution.Visualizations, 1)
			assert.Equal(t, tc.want, vis.Contribution.Visualizations[0].Kind)
			assert.NotEmpty(t, vis.Contribution.InteractiveElements)
		})
	}
}

func TestAssessment_ScalesWithComplexity(t *testing.T) {
	deps, _ := newTestDeps(t)
	a := NewAssessmentAgent(deps)

	easy := chemistryQuery()
	easy.Complexity = 3
	msg := core.NewRequest(core.AgentOrchestrator, core.AgentAssessment, "a1",
		core.BuildAssessmentPayload{Query: easy})
	payload, err := a.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, payload.(core.AssessmentPayload).Contribution.Assessments, 2)

	hard := chemistryQuery()
	hard.Complexity = 8
	msg = core.NewRequest(core.AgentOrchestrator, core.AgentAssessment, "a2",
		core.BuildAssessmentPayload{Query: hard})
	payload, err = a.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, payload.(core.AssessmentPayload).Contribution.Assessments, 3)
}

func TestResource_FindsVideosAndLinks(t *testing.T) {
	deps, _ := newTestDeps(t)
	a := NewResourceAgent(deps)

	msg := core.NewRequest(core.AgentOrchestrator, core.AgentResource, "r1",
		core.FindResourcesPayload{Query: chemistryQuery()})

	payload, err := a.Process(context.Background(), msg)
	require.NoError(t, err)
	list, ok := payload.(core.ResourceListPayload)
	require.True(t, ok)
	assert.NotEmpty(t, list.Contribution.Videos)
	assert.NotEmpty(t, list.Contribution.Resources)
}

func TestResource_SearchFailureIsServiceError(t *testing.T) {
	videos := provider.NewStaticVideos()
	videos.SetFailure(errors.New("search backend down"))
	deps, _ := newTestDeps(t)
	deps.Services = provider.NewLayer(func(o *provider.Options) { o.Videos = videos })
	a := NewResourceAgent(deps)

	msg := core.NewRequest(core.AgentOrchestrator, core.AgentResource, "r2",
		core.FindResourcesPayload{Query: chemistryQuery()})

	_, err := a.Process(context.Background(), msg)
	var agentErr *core.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, core.ErrCodeServiceConnection, agentErr.Code)
}

func TestPedagogy_PlansForBeginner(t *testing.T) {
	deps, _ := newTestDeps(t)
	a := NewPedagogyAgent(deps)

	msg := core.NewRequest(core.AgentOrchestrator, core.AgentPedagogy, "p1",
		core.PlanGuidancePayload{
			Query:   chemistryQuery(),
			Context: core.QueryContext{StudentLevel: "beginner"},
		})

	payload, err := a.Process(context.Background(), msg)
	require.NoError(t, err)
	guidance, ok := payload.(core.GuidancePayload)
	require.True(t, ok)
	assert.NotEmpty(t, guidance.Contribution.Text)
	assert.NotEmpty(t, guidance.Contribution.FollowUps)
}
