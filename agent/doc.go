// Package agent provides the worker agents of the tutoring mesh and the
// shared BaseAgent they embed.
//
// A concrete agent implements only Processor; BaseAgent supplies the rest of
// the contract: bus subscription, required-tool validation at initialization,
// the timeout-guarded dispatch pipeline with bounded concurrency, typed error
// conversion, periodic health checks and heartbeats, and per-agent metrics.
// The six workers are ConversationAgent (query normalization, the critical
// path), ContentSpecialistAgent (explanations), VisualLearningAgent
// (visualizations), AssessmentAgent (practice items), ResourceAgent (videos
// and links) and PedagogyAgent (study guidance).
package agent
