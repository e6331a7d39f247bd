package core

import (
	"context"
	"time"
)

// BayesianBeliefs is the per-user belief state over modalities. Mutation is
// scoped to exactly one user; implementations must never alias a beliefs
// record across users. Zero-data modalities report a 0.5 success rate.
type BayesianBeliefs struct {
	UserID string `json:"user_id"`

	// Preferences holds per-modality preference weights in [0,1].
	Preferences map[Modality]float64 `json:"preferences"`

	// ComplexityPreference is the user's comfortable complexity on a 1-10 scale.
	ComplexityPreference float64 `json:"complexity_preference"`

	// Successes and Attempts back the per-modality success rates and the
	// Wilson confidence interval.
	Successes map[Modality]int `json:"successes"`
	Attempts  map[Modality]int `json:"attempts"`

	// AvgTimes is the running mean time-to-understand per modality.
	AvgTimes map[Modality]time.Duration `json:"avg_times"`

	// LearningSpeed scales time-efficiency scoring; 1.0 is the population mean.
	LearningSpeed float64 `json:"learning_speed"`

	LastUpdated time.Time `json:"last_updated"`
}

// NewBeliefs creates the neutral belief state for a first-time user.
func NewBeliefs(userID string) *BayesianBeliefs {
	return &BayesianBeliefs{
		UserID:               userID,
		Preferences:          make(map[Modality]float64, len(AllModalities)),
		ComplexityPreference: 5,
		Successes:            make(map[Modality]int, len(AllModalities)),
		Attempts:             make(map[Modality]int, len(AllModalities)),
		AvgTimes:             make(map[Modality]time.Duration, len(AllModalities)),
		LearningSpeed:        1.0,
		LastUpdated:          time.Now().UTC(),
	}
}

// SuccessRate returns the observed success ratio for a modality, or 0.5 when
// no interactions have been recorded.
func (b *BayesianBeliefs) SuccessRate(m Modality) float64 {
	attempts := b.Attempts[m]
	if attempts == 0 {
		return 0.5
	}
	return float64(b.Successes[m]) / float64(attempts)
}

// Clone returns a deep copy so readers never alias the stored record.
func (b *BayesianBeliefs) Clone() *BayesianBeliefs {
	nb := *b
	nb.Preferences = make(map[Modality]float64, len(b.Preferences))
	for k, v := range b.Preferences {
		nb.Preferences[k] = v
	}
	nb.Successes = make(map[Modality]int, len(b.Successes))
	for k, v := range b.Successes {
		nb.Successes[k] = v
	}
	nb.Attempts = make(map[Modality]int, len(b.Attempts))
	for k, v := range b.Attempts {
		nb.Attempts[k] = v
	}
	nb.AvgTimes = make(map[Modality]time.Duration, len(b.AvgTimes))
	for k, v := range b.AvgTimes {
		nb.AvgTimes[k] = v
	}
	return &nb
}

// InteractionRecord is one observed learning interaction used to update beliefs.
type InteractionRecord struct {
	UserID       string        `json:"user_id"`
	Concept      string        `json:"concept"`
	Modality     Modality      `json:"modality"`
	Understood   bool          `json:"understood"`
	TimeSpent    time.Duration `json:"time_spent"`
	ManualSwitch bool          `json:"manual_switch"`
	SwitchedFrom Modality      `json:"switched_from,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// AdaptationTrigger names what caused a modality switch.
type AdaptationTrigger string

const (
	// TriggerTimeThreshold fires after too long on one modality.
	TriggerTimeThreshold AdaptationTrigger = "time_threshold"
	// TriggerConfusionDetected fires on a confusion signal.
	TriggerConfusionDetected AdaptationTrigger = "confusion_detected"
	// TriggerManualSwitch records a user-initiated change.
	TriggerManualSwitch AdaptationTrigger = "manual_switch"
	// TriggerSystemSuggestion records an automatic fallback by the engine.
	TriggerSystemSuggestion AdaptationTrigger = "system_suggestion"
	// TriggerGoDeeper records a request for more detail.
	TriggerGoDeeper AdaptationTrigger = "go_deeper"
	// TriggerSimplify records a request for a simpler treatment.
	TriggerSimplify AdaptationTrigger = "simplify"
)

// AdaptationEvent records one modality transition. Events are append-only and
// never mutated after creation.
type AdaptationEvent struct {
	Timestamp    time.Time         `json:"timestamp"`
	Trigger      AdaptationTrigger `json:"trigger"`
	FromModality Modality          `json:"from_modality"`
	ToModality   Modality          `json:"to_modality"`
	Concept      string            `json:"concept"`
	UserID       string            `json:"user_id"`
	Successful   bool              `json:"successful"`
}

// Recommendation is the predictor's ranked answer for one concept. The
// probabilities over all seven modalities sum to 1 before the top choice is
// extracted; Fallbacks excludes the recommended modality.
type Recommendation struct {
	Concept       string               `json:"concept"`
	Modality      Modality             `json:"modality"`
	Confidence    float64              `json:"confidence"`
	Reasoning     string               `json:"reasoning"`
	Fallbacks     []Modality           `json:"fallbacks"`
	Probabilities map[Modality]float64 `json:"probabilities"`
}

// UserModelStore persists per-user belief state. The in-process predictor
// works without one; stores exist so collaborators can survive restarts.
type UserModelStore interface {
	// Load returns the stored beliefs for a user, or (nil, nil) when the
	// user is unknown.
	Load(ctx context.Context, userID string) (*BayesianBeliefs, error)
	// Save stores a snapshot of the beliefs record.
	Save(ctx context.Context, beliefs *BayesianBeliefs) error
	// Close releases underlying resources.
	Close() error
}
