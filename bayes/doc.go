// Package bayes ranks content modalities per user.
//
// The Predictor keeps a BayesianBeliefs record per user, updated from
// observed interactions, and scores the seven modalities for a concept as a
// product of the modality prior, the user's preference, the concept-type
// affinity, the complexity fit, the observed success rate and the user's
// time efficiency. The normalized scores sum to 1; the argmax is the
// recommendation and the next three form the fallback chain. A Wilson score
// interval over the success counts is available for uncertainty reporting
// but never alters the selection.
package bayes
