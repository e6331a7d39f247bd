package adaptive

import (
	"context"
	"strings"

	"github.com/tutormesh/tutormesh/bayes"
	"github.com/tutormesh/tutormesh/core"
)

// Ranker ranks modalities for a concept. *bayes.Predictor satisfies it; the
// static ranker covers anonymous calls with no belief state.
type Ranker interface {
	PredictBestModality(ctx context.Context, userID string, analysis core.ConceptAnalysis) (core.Recommendation, error)
}

// staticChains maps each concept type to a fixed preference order.
var staticChains = map[bayes.ConceptType][]core.Modality{
	bayes.ConceptProcess:      {core.ModalityAnimation, core.ModalitySimulation, core.ModalityDiagram, core.ModalityText},
	bayes.ConceptStructure:    {core.ModalityThreeD, core.ModalityDiagram, core.ModalityAnimation, core.ModalityText},
	bayes.ConceptSystem:       {core.ModalitySimulation, core.ModalityConceptMap, core.ModalityDiagram, core.ModalityText},
	bayes.ConceptRelationship: {core.ModalityConceptMap, core.ModalityDiagram, core.ModalityText, core.ModalityVideo},
}

// StaticRanker ranks by concept-type keywords alone. It backs anonymous
// generation calls where no per-user beliefs exist.
type StaticRanker struct{}

// PredictBestModality implements Ranker with the fixed chain for the
// concept's inferred type.
func (StaticRanker) PredictBestModality(_ context.Context, _ string, analysis core.ConceptAnalysis) (core.Recommendation, error) {
	chain := staticChains[bayes.InferConceptType(analysis)]
	probs := make(map[core.Modality]float64, len(core.AllModalities))
	remainder := 1.0
	for i, m := range chain {
		share := []float64{0.4, 0.3, 0.2, 0.1}[i]
		probs[m] = share
		remainder -= share
	}
	for _, m := range core.AllModalities {
		if _, ok := probs[m]; !ok {
			probs[m] = remainder / float64(len(core.AllModalities)-len(chain))
		}
	}
	return core.Recommendation{
		Concept:       analysis.Concept,
		Modality:      chain[0],
		Confidence:    probs[chain[0]],
		Reasoning:     "static ranking: " + strings.Join(modalityNames(chain), " > "),
		Fallbacks:     append([]core.Modality(nil), chain[1:]...),
		Probabilities: probs,
	}, nil
}

func modalityNames(ms []core.Modality) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}
