// Package orchestrator coordinates the worker agents for one query at a
// time.
//
// ProcessQuery first asks the conversation agent to normalize the raw text
// (the critical path), derives the required agent set from the resulting
// need flags, and executes a fixed three-stage plan: content specialist,
// then the visual/assessment/resource trio, then pedagogy. Calls within a
// stage run concurrently and are correlated by id; a stage fully settles
// before the next one starts; failures outside the conversation call are
// tolerated and excluded from synthesis. Any unrecoverable failure yields a
// fixed degraded response instead of an error.
//
// The orchestrator also sweeps agent health every interval, emitting events
// without removing or restarting agents.
package orchestrator
