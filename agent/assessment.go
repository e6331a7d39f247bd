package agent

import (
	"context"
	"fmt"

	"github.com/tutormesh/tutormesh/core"
)

// AssessmentAgent builds practice questions scaled to the query's complexity.
type AssessmentAgent struct {
	*BaseAgent
}

// NewAssessmentAgent constructs the assessment agent.
func NewAssessmentAgent(deps Deps, optFns ...func(c *Config)) *AssessmentAgent {
	cfg := DefaultConfig(core.AgentAssessment)
	for _, fn := range optFns {
		fn(&cfg)
	}
	a := &AssessmentAgent{}
	a.BaseAgent = NewBaseAgent(cfg, deps)
	a.bind(a)
	return a
}

// Process implements Processor.
func (a *AssessmentAgent) Process(_ context.Context, msg core.Message) (core.Payload, error) {
	payload, ok := msg.Payload.(core.BuildAssessmentPayload)
	if !ok {
		return nil, core.NewUnsupportedOperationError(a.Type(), msg.ID, msg.Payload)
	}

	concept := payload.Query.PrimaryConcept()
	count := 2
	if payload.Query.Complexity >= 6 {
		count = 3
	}

	items := make([]core.AssessmentItem, 0, count)
	items = append(items, core.AssessmentItem{
		Question: fmt.Sprintf("In one sentence, what is the key idea behind %s?", concept),
		Answer:   0,
	})
	items = append(items, core.AssessmentItem{
		Question:    fmt.Sprintf("Which statement about %s is correct?", concept),
		Options:     []string{"It always holds", "It holds under the stated conditions", "It never holds", "It is unrelated"},
		Answer:      1,
		Explanation: "Definitions and mechanisms apply under their stated conditions.",
	})
	if count == 3 {
		items = append(items, core.AssessmentItem{
			Question: fmt.Sprintf("Work a small example applying %s and explain each step.", concept),
			Answer:   0,
		})
	}

	return core.AssessmentPayload{
		Contribution: core.Contribution{
			Confidence:  0.7,
			Assessments: items,
			Sources:     []string{"assessment"},
			FollowUps:   []string{"Ready to check your answers?"},
		},
	}, nil
}
