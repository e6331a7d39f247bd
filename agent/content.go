package agent

import (
	"context"
	"fmt"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/provider"
)

// ContentSpecialistAgent produces the subject-matter explanation for a
// processed query. It depends on the AI layer; an unreachable AI backend is
// a genuine failure here, reported as ServiceConnectionFailed.
type ContentSpecialistAgent struct {
	*BaseAgent
	services provider.ServiceLayer
}

// NewContentSpecialistAgent constructs the content specialist. The ai tool is
// required at initialization.
func NewContentSpecialistAgent(deps Deps, optFns ...func(c *Config)) *ContentSpecialistAgent {
	cfg := DefaultConfig(core.AgentContentSpecialist)
	cfg.RequiredTools = []string{"ai"}
	for _, fn := range optFns {
		fn(&cfg)
	}
	a := &ContentSpecialistAgent{services: deps.Services}
	a.BaseAgent = NewBaseAgent(cfg, deps)
	a.bind(a)
	return a
}

// Process implements Processor.
func (a *ContentSpecialistAgent) Process(ctx context.Context, msg core.Message) (core.Payload, error) {
	payload, ok := msg.Payload.(core.ExplainConceptPayload)
	if !ok {
		return nil, core.NewUnsupportedOperationError(a.Type(), msg.ID, msg.Payload)
	}

	concept := payload.Query.PrimaryConcept()
	prompt := fmt.Sprintf(
		"Explain %s (subject: %s) at complexity level %d of 10. Use a worked example and end with the single most common misconception.",
		concept, payload.Query.Subject, payload.Query.Complexity,
	)
	result, err := a.services.QueryAI(ctx, prompt, payload.Context, payload.Context.SessionID)
	if err != nil {
		return nil, core.NewServiceConnectionError(a.Type(), "ai", err)
	}

	return core.ExplanationPayload{
		Contribution: core.Contribution{
			Text:       result.Response,
			Confidence: result.Confidence,
			Sources:    []string{"content_specialist"},
			FollowUps:  []string{fmt.Sprintf("Want a harder example of %s?", concept)},
		},
	}, nil
}

// CheckHealth requires the AI backend to be reachable.
func (a *ContentSpecialistAgent) CheckHealth(ctx context.Context) error {
	health := a.services.GetHealth(ctx)
	if up, ok := health.Services["ai"]; ok && !up {
		return core.NewServiceConnectionError(a.Type(), "ai", fmt.Errorf("reported down"))
	}
	return nil
}
