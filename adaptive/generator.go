package adaptive

import (
	"context"
	"fmt"
	"time"

	"github.com/tutormesh/tutormesh/core"
)

// Generator produces one piece of content in a single modality. External
// generator services implement this; the static generators serve tests,
// demos and offline runs.
type Generator interface {
	Generate(ctx context.Context, analysis core.ConceptAnalysis) (core.GeneratedContent, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, analysis core.ConceptAnalysis) (core.GeneratedContent, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, analysis core.ConceptAnalysis) (core.GeneratedContent, error) {
	return f(ctx, analysis)
}

// StaticGenerator produces deterministic placeholder content for one
// modality.
type StaticGenerator struct {
	modality core.Modality
}

// NewStaticGenerator creates a static generator for the given modality.
func NewStaticGenerator(m core.Modality) *StaticGenerator {
	return &StaticGenerator{modality: m}
}

// Generate returns templated content for the concept.
func (g *StaticGenerator) Generate(_ context.Context, analysis core.ConceptAnalysis) (core.GeneratedContent, error) {
	return core.GeneratedContent{
		ID:       core.NewID(),
		Concept:  analysis.Concept,
		Modality: g.modality,
		Title:    fmt.Sprintf("%s as %s", analysis.Concept, g.modality),
		Body:     fmt.Sprintf("A %s treatment of %s (%s, complexity %d).", g.modality, analysis.Concept, analysis.Subject, analysis.Complexity),
		Data: map[string]string{
			"subject": analysis.Subject,
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// StaticGenerators returns a full registry with a static generator per
// modality.
func StaticGenerators() map[core.Modality]Generator {
	out := make(map[core.Modality]Generator, len(core.AllModalities))
	for _, m := range core.AllModalities {
		out[m] = NewStaticGenerator(m)
	}
	return out
}
