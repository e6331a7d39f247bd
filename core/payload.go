package core

import "time"

// Payload is the closed union of message bodies. Exactly one variant exists
// per agent operation, sealed by the unexported marker method so a type
// switch over variants is exhaustively checkable. Agents reject variants they
// do not handle with an UnsupportedOperation error.
type Payload interface {
	isPayload()
}

// AnalyzeQueryPayload asks the conversation agent to normalize a raw query.
type AnalyzeQueryPayload struct {
	Text    string       `json:"text"`
	Context QueryContext `json:"context"`
}

// QueryAnalysisPayload is the conversation agent's response: the normalized
// query plus its own conversational contribution.
type QueryAnalysisPayload struct {
	Query        ProcessedQuery `json:"query"`
	Contribution Contribution   `json:"contribution"`
}

// ExplainConceptPayload asks the content specialist for an explanation.
type ExplainConceptPayload struct {
	Query   ProcessedQuery `json:"query"`
	Context QueryContext   `json:"context"`
}

// ExplanationPayload is the content specialist's response.
type ExplanationPayload struct {
	Contribution Contribution `json:"contribution"`
}

// RenderVisualizationPayload asks the visual learning agent for visuals.
type RenderVisualizationPayload struct {
	Query   ProcessedQuery `json:"query"`
	Context QueryContext   `json:"context"`
}

// VisualizationPayload is the visual learning agent's response.
type VisualizationPayload struct {
	Contribution Contribution `json:"contribution"`
}

// BuildAssessmentPayload asks the assessment agent for practice questions.
type BuildAssessmentPayload struct {
	Query   ProcessedQuery `json:"query"`
	Context QueryContext   `json:"context"`
}

// AssessmentPayload is the assessment agent's response.
type AssessmentPayload struct {
	Contribution Contribution `json:"contribution"`
}

// FindResourcesPayload asks the resource agent for videos and references.
type FindResourcesPayload struct {
	Query   ProcessedQuery `json:"query"`
	Context QueryContext   `json:"context"`
}

// ResourceListPayload is the resource agent's response.
type ResourceListPayload struct {
	Contribution Contribution `json:"contribution"`
}

// PlanGuidancePayload asks the pedagogy agent for study guidance.
type PlanGuidancePayload struct {
	Query   ProcessedQuery `json:"query"`
	Context QueryContext   `json:"context"`
}

// GuidancePayload is the pedagogy agent's response.
type GuidancePayload struct {
	Contribution Contribution `json:"contribution"`
}

// ErrorPayload reports a typed failure on a MessageError envelope.
type ErrorPayload struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// HeartbeatPayload is the body of a HEARTBEAT message.
type HeartbeatPayload struct {
	Agent  AgentType `json:"agent"`
	SentAt time.Time `json:"sent_at"`
}

// TaskAssignmentPayload hands named background work to an agent.
type TaskAssignmentPayload struct {
	Task   string            `json:"task"`
	Params map[string]string `json:"params,omitempty"`
}

func (AnalyzeQueryPayload) isPayload()        {}
func (QueryAnalysisPayload) isPayload()       {}
func (ExplainConceptPayload) isPayload()      {}
func (ExplanationPayload) isPayload()         {}
func (RenderVisualizationPayload) isPayload() {}
func (VisualizationPayload) isPayload()       {}
func (BuildAssessmentPayload) isPayload()     {}
func (AssessmentPayload) isPayload()          {}
func (FindResourcesPayload) isPayload()       {}
func (ResourceListPayload) isPayload()        {}
func (PlanGuidancePayload) isPayload()        {}
func (GuidancePayload) isPayload()            {}
func (ErrorPayload) isPayload()               {}
func (HeartbeatPayload) isPayload()           {}
func (TaskAssignmentPayload) isPayload()      {}

// ContributionOf extracts the Contribution from any worker response variant.
// The second return is false for payloads that carry no contribution.
func ContributionOf(p Payload) (Contribution, bool) {
	switch v := p.(type) {
	case QueryAnalysisPayload:
		return v.Contribution, true
	case ExplanationPayload:
		return v.Contribution, true
	case VisualizationPayload:
		return v.Contribution, true
	case AssessmentPayload:
		return v.Contribution, true
	case ResourceListPayload:
		return v.Contribution, true
	case GuidancePayload:
		return v.Contribution, true
	default:
		return Contribution{}, false
	}
}
