// Package core contains the shared domain model for TutorMesh: the message
// envelope and its closed payload union, agent and modality enumerations, the
// tutoring response types, the per-user belief state consumed by the Bayesian
// predictor, the error taxonomy and the system event registry.
//
// Every other package depends on core; core depends on nothing but the
// standard library and the uuid generator. Types here are plain data — the
// behavior lives in bus, agent, orchestrator, bayes and adaptive.
package core
