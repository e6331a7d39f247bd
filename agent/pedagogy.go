package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/provider"
)

// PedagogyAgent plans study guidance: how to approach a concept, what order
// to learn things in, and what to do next. It works from the processed query
// alone and optionally enriches the plan with AI-generated advice.
type PedagogyAgent struct {
	*BaseAgent
	services provider.ServiceLayer
}

// NewPedagogyAgent constructs the pedagogy agent.
func NewPedagogyAgent(deps Deps, optFns ...func(c *Config)) *PedagogyAgent {
	cfg := DefaultConfig(core.AgentPedagogy)
	for _, fn := range optFns {
		fn(&cfg)
	}
	a := &PedagogyAgent{services: deps.Services}
	a.BaseAgent = NewBaseAgent(cfg, deps)
	a.bind(a)
	return a
}

// Process implements Processor.
func (a *PedagogyAgent) Process(ctx context.Context, msg core.Message) (core.Payload, error) {
	payload, ok := msg.Payload.(core.PlanGuidancePayload)
	if !ok {
		return nil, core.NewUnsupportedOperationError(a.Type(), msg.ID, msg.Payload)
	}

	concept := payload.Query.PrimaryConcept()
	plan := a.buildPlan(payload.Query, payload.Context)

	text := plan
	prompt := fmt.Sprintf("Restate this study plan warmly in two short paragraphs without adding steps. Student level: %s. Concept: %s. Plan:\n%s",
		payload.Context.StudentLevel, concept, plan)
	if res, err := a.services.QueryAI(ctx, prompt, payload.Context, payload.Context.SessionID); err == nil && res.Response != "" {
		text = res.Response
	}

	return core.GuidancePayload{
		Contribution: core.Contribution{
			Text:       text,
			Confidence: 0.7,
			Sources:    []string{"pedagogy"},
			FollowUps: []string{
				fmt.Sprintf("Which step of the %s plan should we start with?", concept),
				"Would you like a harder or easier starting point?",
			},
		},
	}, nil
}

// buildPlan produces a deterministic three-step study plan scaled to the
// query's complexity and the student's level.
func (a *PedagogyAgent) buildPlan(q core.ProcessedQuery, qc core.QueryContext) string {
	concept := q.PrimaryConcept()
	var b strings.Builder
	fmt.Fprintf(&b, "Study plan for %s:\n", concept)

	if q.Complexity >= 7 {
		fmt.Fprintf(&b, "1. Review the prerequisites before tackling %s directly.\n", concept)
	} else {
		fmt.Fprintf(&b, "1. Start with a plain-language summary of %s.\n", concept)
	}
	fmt.Fprintf(&b, "2. Work through one concrete example of %s step by step.\n", concept)
	if strings.EqualFold(qc.StudentLevel, "beginner") {
		b.WriteString("3. Explain it back in your own words, then try a guided practice question.\n")
	} else {
		b.WriteString("3. Attempt an unguided problem and check where your reasoning diverges.\n")
	}
	return b.String()
}
