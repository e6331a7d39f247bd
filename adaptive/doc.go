// Package adaptive generates per-user content with automatic modality
// fallback.
//
// The Engine asks a Ranker (normally the bayes Predictor) for a recommended
// modality and up to three fallbacks, then walks the chain: each candidate
// gets one bounded generation attempt, a failure or timeout advances to the
// next candidate, and the first success wins. Every transition between
// candidates is recorded as an AdaptationEvent once the destination attempt
// settles. When the whole chain fails the engine raises a hard error naming
// the concept; the caller owns the user-visible fallback.
//
// Confusion timers are advisory: a session that stays open on one piece of
// content past the threshold emits a confusion_suspected event and nothing
// else.
package adaptive
