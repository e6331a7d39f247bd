package bayes

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tutormesh/tutormesh/core"
)

// ConceptType is the coarse shape of a concept used for modality affinity.
type ConceptType string

const (
	// ConceptProcess covers step-by-step mechanisms and procedures.
	ConceptProcess ConceptType = "process"
	// ConceptStructure covers spatial arrangement and anatomy.
	ConceptStructure ConceptType = "structure"
	// ConceptSystem covers interacting parts with feedback.
	ConceptSystem ConceptType = "system"
	// ConceptRelationship covers dependencies between ideas.
	ConceptRelationship ConceptType = "relationship"
)

// modalityPriors is the no-signal distribution over modalities. The values
// sum to 1 so a brand-new user's scores are already near-normalized.
var modalityPriors = map[core.Modality]float64{
	core.ModalityAnimation:  0.25,
	core.ModalityThreeD:     0.15,
	core.ModalitySimulation: 0.15,
	core.ModalityDiagram:    0.15,
	core.ModalityConceptMap: 0.10,
	core.ModalityText:       0.10,
	core.ModalityVideo:      0.10,
}

// conceptTypeWeights boosts modalities suited to each concept shape.
// Unlisted pairs contribute no boost.
var conceptTypeWeights = map[ConceptType]map[core.Modality]float64{
	ConceptProcess: {
		core.ModalityAnimation:  0.30,
		core.ModalitySimulation: 0.20,
		core.ModalityDiagram:    0.10,
		core.ModalityVideo:      0.10,
	},
	ConceptStructure: {
		core.ModalityThreeD:     0.30,
		core.ModalityDiagram:    0.20,
		core.ModalityConceptMap: 0.10,
	},
	ConceptSystem: {
		core.ModalitySimulation: 0.30,
		core.ModalityConceptMap: 0.20,
		core.ModalityDiagram:    0.10,
	},
	ConceptRelationship: {
		core.ModalityConceptMap: 0.30,
		core.ModalityDiagram:    0.20,
		core.ModalityText:       0.10,
	},
}

var conceptTypeKeywords = map[ConceptType][]string{
	ConceptStructure:    {"structure", "anatomy", "shape", "geometry", "molecule", "lattice", "layout"},
	ConceptSystem:       {"system", "cycle", "ecosystem", "circuit", "feedback", "network"},
	ConceptRelationship: {"relationship", "versus", "compare", "correlation", "depends", "between"},
	ConceptProcess:      {"mechanism", "reaction", "process", "algorithm", "pathway", "steps"},
}

// InferConceptType maps a concept analysis onto a coarse concept type using
// keyword heuristics over the concept name and its topics. Process is the
// default: most tutoring queries ask how something happens.
func InferConceptType(analysis core.ConceptAnalysis) ConceptType {
	haystack := strings.ToLower(analysis.Concept + " " + strings.Join(analysis.Topics, " "))
	for _, ct := range []ConceptType{ConceptStructure, ConceptSystem, ConceptRelationship, ConceptProcess} {
		for _, kw := range conceptTypeKeywords[ct] {
			if strings.Contains(haystack, kw) {
				return ct
			}
		}
	}
	return ConceptProcess
}

// complexityMatch scores how well a modality fits the concept's complexity
// relative to the user's comfortable level. Rich modalities earn a bonus on
// complex concepts, lean ones on simple concepts.
func complexityMatch(conceptComplexity int, userPreference float64, m core.Modality) float64 {
	match := 1.0
	diff := math.Abs(float64(conceptComplexity) - userPreference)
	if diff <= 2 {
		match = 1.2
	} else if diff >= 5 {
		match = 0.85
	}
	switch m {
	case core.ModalityAnimation, core.ModalitySimulation, core.ModalityThreeD:
		if conceptComplexity >= 7 {
			match *= 1.15
		}
	case core.ModalityText, core.ModalityDiagram:
		if conceptComplexity <= 3 {
			match *= 1.15
		}
	}
	return match
}

// baselineTime is the population-mean time-to-understand one content piece.
const baselineTime = 3 * time.Minute

// timeEfficiency scores a modality by how quickly the user historically
// reaches understanding with it, scaled by the user's overall learning
// speed and clamped to [0.5, 1.5]. No observations score neutral.
func timeEfficiency(b *core.BayesianBeliefs, m core.Modality) float64 {
	avg := b.AvgTimes[m]
	if avg <= 0 {
		return 1.0
	}
	speed := b.LearningSpeed
	if speed <= 0 {
		speed = 1.0
	}
	eff := (float64(baselineTime) / float64(avg)) * speed
	if eff < 0.5 {
		eff = 0.5
	} else if eff > 1.5 {
		eff = 1.5
	}
	return eff
}

// scoreModalities computes the normalized probability for every modality.
// The returned map sums to 1.
func scoreModalities(b *core.BayesianBeliefs, analysis core.ConceptAnalysis) map[core.Modality]float64 {
	conceptType := InferConceptType(analysis)
	weights := conceptTypeWeights[conceptType]

	scores := make(map[core.Modality]float64, len(core.AllModalities))
	total := 0.0
	for _, m := range core.AllModalities {
		score := modalityPriors[m] *
			(1 + b.Preferences[m]) *
			(1 + weights[m]) *
			complexityMatch(analysis.Complexity, b.ComplexityPreference, m) *
			(0.5 + b.SuccessRate(m)) *
			timeEfficiency(b, m)
		scores[m] = score
		total += score
	}
	if total <= 0 {
		// Degenerate beliefs; fall back to the uniform distribution.
		uniform := 1.0 / float64(len(core.AllModalities))
		for _, m := range core.AllModalities {
			scores[m] = uniform
		}
		return scores
	}
	for m := range scores {
		scores[m] /= total
	}
	return scores
}

// rankModalities orders all modalities by descending probability, breaking
// ties by the canonical AllModalities order.
func rankModalities(probs map[core.Modality]float64) []core.Modality {
	order := make(map[core.Modality]int, len(core.AllModalities))
	for i, m := range core.AllModalities {
		order[m] = i
	}
	ranked := append([]core.Modality(nil), core.AllModalities...)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := probs[ranked[i]], probs[ranked[j]]
		if pi != pj {
			return pi > pj
		}
		return order[ranked[i]] < order[ranked[j]]
	})
	return ranked
}

// buildReasoning explains the pick from its strongest contributing factors.
func buildReasoning(b *core.BayesianBeliefs, analysis core.ConceptAnalysis, m core.Modality) string {
	parts := []string{fmt.Sprintf("%s suits a %s concept", m, InferConceptType(analysis))}
	if rate := b.SuccessRate(m); b.Attempts[m] > 0 {
		parts = append(parts, fmt.Sprintf("past success rate %.0f%% over %d interactions", rate*100, b.Attempts[m]))
	}
	if pref := b.Preferences[m]; pref >= 0.3 {
		parts = append(parts, fmt.Sprintf("strong stated preference (%.1f)", pref))
	}
	if avg := b.AvgTimes[m]; avg > 0 && avg < baselineTime {
		parts = append(parts, fmt.Sprintf("faster than average understanding (%s)", avg.Round(time.Second)))
	}
	if math.Abs(float64(analysis.Complexity)-b.ComplexityPreference) <= 2 {
		parts = append(parts, "complexity matches the user's comfort level")
	}
	return strings.Join(parts, "; ")
}
