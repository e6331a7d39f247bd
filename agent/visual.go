package agent

import (
	"context"
	"fmt"

	"github.com/tutormesh/tutormesh/core"
)

// VisualLearningAgent produces renderer-agnostic visualization specs and the
// interactive elements that accompany them. Rendering is a collaborator
// concern; the agent only decides what to draw.
type VisualLearningAgent struct {
	*BaseAgent
}

// NewVisualLearningAgent constructs the visual learning agent.
func NewVisualLearningAgent(deps Deps, optFns ...func(c *Config)) *VisualLearningAgent {
	cfg := DefaultConfig(core.AgentVisualLearning)
	for _, fn := range optFns {
		fn(&cfg)
	}
	a := &VisualLearningAgent{}
	a.BaseAgent = NewBaseAgent(cfg, deps)
	a.bind(a)
	return a
}

// Process implements Processor.
func (a *VisualLearningAgent) Process(_ context.Context, msg core.Message) (core.Payload, error) {
	payload, ok := msg.Payload.(core.RenderVisualizationPayload)
	if !ok {
		return nil, core.NewUnsupportedOperationError(a.Type(), msg.ID, msg.Payload)
	}

	concept := payload.Query.PrimaryConcept()
	kind := visualizationKind(payload.Query)

	visualization := core.Visualization{
		Kind:  kind,
		Title: fmt.Sprintf("%s (%s)", concept, kind),
		Spec:  fmt.Sprintf(`{"concept":%q,"subject":%q,"style":%q}`, concept, payload.Query.Subject, kind),
	}
	elements := []core.InteractiveElement{
		{Kind: "slider", Label: "Playback speed", Options: map[string]string{"min": "0.5", "max": "2.0"}},
	}
	if kind == "3d" {
		elements = append(elements, core.InteractiveElement{Kind: "toggle", Label: "Rotate freely"})
	}

	return core.VisualizationPayload{
		Contribution: core.Contribution{
			Confidence:          0.8,
			Visualizations:      []core.Visualization{visualization},
			InteractiveElements: elements,
			Sources:             []string{"visual_learning"},
		},
	}, nil
}

// visualizationKind picks the visualization style from the processed query.
// Mechanisms and reactions animate; structures render in 3D; everything else
// gets a labeled diagram.
func visualizationKind(q core.ProcessedQuery) string {
	concept := q.PrimaryConcept()
	switch {
	case containsAny(concept, "mechanism", "reaction", "cycle", "process"):
		return "animation"
	case containsAny(concept, "structure", "molecule", "geometry", "orbital"):
		return "3d"
	case q.Complexity >= 7:
		return "animation"
	default:
		return "diagram"
	}
}
