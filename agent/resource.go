package agent

import (
	"context"
	"fmt"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/provider"
)

// ResourceAgent finds external videos and reference material. Video search
// is its required external tool; a search failure fails the call (the
// orchestrator tolerates it and synthesizes without resources).
type ResourceAgent struct {
	*BaseAgent
	services provider.ServiceLayer
}

// NewResourceAgent constructs the resource agent. The videos tool is
// required at initialization.
func NewResourceAgent(deps Deps, optFns ...func(c *Config)) *ResourceAgent {
	cfg := DefaultConfig(core.AgentResource)
	cfg.RequiredTools = []string{"videos"}
	for _, fn := range optFns {
		fn(&cfg)
	}
	a := &ResourceAgent{services: deps.Services}
	a.BaseAgent = NewBaseAgent(cfg, deps)
	a.bind(a)
	return a
}

// Process implements Processor.
func (a *ResourceAgent) Process(ctx context.Context, msg core.Message) (core.Payload, error) {
	payload, ok := msg.Payload.(core.FindResourcesPayload)
	if !ok {
		return nil, core.NewUnsupportedOperationError(a.Type(), msg.ID, msg.Payload)
	}

	concept := payload.Query.PrimaryConcept()
	videos, err := a.services.SearchVideos(ctx, concept, payload.Query.Subject)
	if err != nil {
		return nil, core.NewServiceConnectionError(a.Type(), "videos", err)
	}

	resources := []core.Resource{
		{Title: fmt.Sprintf("%s reference notes", concept), URL: "https://notes.example/" + payload.Query.Subject, Kind: "reference"},
		{Title: fmt.Sprintf("Practice set: %s", concept), URL: "https://practice.example/" + payload.Query.Subject, Kind: "exercise"},
	}

	return core.ResourceListPayload{
		Contribution: core.Contribution{
			Confidence: 0.65,
			Videos:     videos,
			Resources:  resources,
			Sources:    []string{"resource"},
		},
	}, nil
}

// CheckHealth requires the video search service to be reachable.
func (a *ResourceAgent) CheckHealth(ctx context.Context) error {
	health := a.services.GetHealth(ctx)
	if up, ok := health.Services["videos"]; ok && !up {
		return core.NewServiceConnectionError(a.Type(), "videos", fmt.Errorf("reported down"))
	}
	return nil
}
