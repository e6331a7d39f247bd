package orchestrator

import "github.com/tutormesh/tutormesh/core"

// buildPlan derives the three-stage execution plan from the processed
// query's need flags. The stage shape is fixed: the content specialist runs
// first so later stages can assume an explanation exists; the visual,
// assessment and resource agents run together; pedagogy runs last. Empty
// stages settle immediately. The conversation agent is not planned here; it
// already ran on the critical path.
func buildPlan(q core.ProcessedQuery) [][]core.AgentType {
	var stage1, stage2, stage3 []core.AgentType

	if q.NeedsExplanation || q.WantsEncouragement {
		stage1 = append(stage1, core.AgentContentSpecialist)
	}
	if q.NeedsVisualization {
		stage2 = append(stage2, core.AgentVisualLearning)
	}
	if q.NeedsAssessment {
		stage2 = append(stage2, core.AgentAssessment)
	}
	if q.NeedsResources {
		stage2 = append(stage2, core.AgentResource)
	}
	if q.NeedsGuidance {
		stage3 = append(stage3, core.AgentPedagogy)
	}

	return [][]core.AgentType{stage1, stage2, stage3}
}

// payloadFor builds the request payload for one planned agent call.
func payloadFor(at core.AgentType, q core.ProcessedQuery, qc core.QueryContext) core.Payload {
	switch at {
	case core.AgentContentSpecialist:
		return core.ExplainConceptPayload{Query: q, Context: qc}
	case core.AgentVisualLearning:
		return core.RenderVisualizationPayload{Query: q, Context: qc}
	case core.AgentAssessment:
		return core.BuildAssessmentPayload{Query: q, Context: qc}
	case core.AgentResource:
		return core.FindResourcesPayload{Query: q, Context: qc}
	case core.AgentPedagogy:
		return core.PlanGuidancePayload{Query: q, Context: qc}
	default:
		return core.AnalyzeQueryPayload{Context: qc}
	}
}
