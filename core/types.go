package core

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a new unique identifier for messages, requests and content.
func NewID() string { return uuid.NewString() }

// AgentType identifies a named endpoint on the message bus. Each agent type
// has at most one live subscription; the orchestrator is itself an endpoint
// so that response messages can be routed back to it.
type AgentType string

const (
	// AgentConversation normalizes raw student queries into a ProcessedQuery.
	AgentConversation AgentType = "conversation"
	// AgentContentSpecialist produces subject-matter explanations.
	AgentContentSpecialist AgentType = "content_specialist"
	// AgentVisualLearning produces visualization specs and interactive elements.
	AgentVisualLearning AgentType = "visual_learning"
	// AgentAssessment produces practice questions.
	AgentAssessment AgentType = "assessment"
	// AgentResource finds videos and reference material.
	AgentResource AgentType = "resource"
	// AgentPedagogy plans study guidance and follow-ups.
	AgentPedagogy AgentType = "pedagogy"
	// AgentOrchestrator is the coordinator endpoint responses are routed to.
	AgentOrchestrator AgentType = "orchestrator"
)

// WorkerAgentTypes lists the six content-producing agent types, excluding the
// orchestrator endpoint, in dispatch order.
var WorkerAgentTypes = []AgentType{
	AgentConversation,
	AgentContentSpecialist,
	AgentVisualLearning,
	AgentAssessment,
	AgentResource,
	AgentPedagogy,
}

// Modality names a presentation form for generated content.
type Modality string

const (
	// ModalityAnimation is a 2D animated explanation.
	ModalityAnimation Modality = "animation"
	// ModalityThreeD is an interactive 3D model.
	ModalityThreeD Modality = "3d"
	// ModalitySimulation is a parameterized interactive simulation.
	ModalitySimulation Modality = "simulation"
	// ModalityDiagram is a static labeled diagram.
	ModalityDiagram Modality = "diagram"
	// ModalityConceptMap is a node/edge concept map.
	ModalityConceptMap Modality = "concept_map"
	// ModalityText is a plain written explanation.
	ModalityText Modality = "text"
	// ModalityVideo is a curated external video.
	ModalityVideo Modality = "video"
)

// AllModalities is the canonical ordering of the seven modalities. Scoring
// ties are broken by this order, so it must stay stable.
var AllModalities = []Modality{
	ModalityAnimation,
	ModalityThreeD,
	ModalitySimulation,
	ModalityDiagram,
	ModalityConceptMap,
	ModalityText,
	ModalityVideo,
}

// QueryContext carries session information supplied by the inbound caller.
type QueryContext struct {
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id,omitempty"`
	StudentLevel string            `json:"student_level,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
}

// ProcessedQuery is the conversation agent's normalized view of a raw query.
// The boolean need flags drive the orchestrator's agent selection rule table.
type ProcessedQuery struct {
	Intent             string   `json:"intent"`
	Subject            string   `json:"subject"`
	Concepts           []string `json:"concepts"`
	Complexity         int      `json:"complexity"` // 1-10
	NeedsExplanation   bool     `json:"needs_explanation"`
	NeedsVisualization bool     `json:"needs_visualization"`
	NeedsAssessment    bool     `json:"needs_assessment"`
	NeedsResources     bool     `json:"needs_resources"`
	NeedsGuidance      bool     `json:"needs_guidance"`
	WantsEncouragement bool     `json:"wants_encouragement"`
	WantsFeedback      bool     `json:"wants_feedback"`
}

// PrimaryConcept returns the first extracted concept or an empty string.
func (q ProcessedQuery) PrimaryConcept() string {
	if len(q.Concepts) == 0 {
		return ""
	}
	return q.Concepts[0]
}

// ConceptAnalysis describes a concept for modality selection and generation.
type ConceptAnalysis struct {
	Concept    string   `json:"concept"`
	Subject    string   `json:"subject"`
	Topics     []string `json:"topics,omitempty"`
	Complexity int      `json:"complexity"` // 1-10
}

// Visualization is a renderer-agnostic visualization spec.
type Visualization struct {
	Kind  string `json:"kind"` // e.g. "animation", "diagram"
	Title string `json:"title"`
	Spec  string `json:"spec"`
}

// VideoResult is one hit from the external video search service.
type VideoResult struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// AssessmentItem is a single practice question.
type AssessmentItem struct {
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Resource is a curated reference link.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Kind  string `json:"kind"` // "article", "reference", "exercise"
}

// InteractiveElement is a UI affordance attached to a response.
type InteractiveElement struct {
	Kind    string            `json:"kind"` // "slider", "toggle", "quiz"
	Label   string            `json:"label"`
	Options map[string]string `json:"options,omitempty"`
}

// Contribution is the uniform shape every agent reports back for synthesis.
// A zero Confidence means the agent did not report one.
type Contribution struct {
	Text                string               `json:"text,omitempty"`
	Confidence          float64              `json:"confidence,omitempty"`
	Visualizations      []Visualization      `json:"visualizations,omitempty"`
	Videos              []VideoResult        `json:"videos,omitempty"`
	Assessments         []AssessmentItem     `json:"assessments,omitempty"`
	Resources           []Resource           `json:"resources,omitempty"`
	InteractiveElements []InteractiveElement `json:"interactive_elements,omitempty"`
	Sources             []string             `json:"sources,omitempty"`
	FollowUps           []string             `json:"follow_ups,omitempty"`
}

// ResponseType classifies a TutorResponse for the presentation layer.
type ResponseType string

const (
	// ResponseExplanation is the default explanatory answer.
	ResponseExplanation ResponseType = "explanation"
	// ResponseAssessment carries practice questions.
	ResponseAssessment ResponseType = "assessment"
	// ResponseResources carries reference material and videos.
	ResponseResources ResponseType = "resources"
	// ResponseEncouragement is a motivational answer.
	ResponseEncouragement ResponseType = "encouragement"
	// ResponseFeedback reacts to submitted student work.
	ResponseFeedback ResponseType = "feedback"
)

// ResponseMetadata records which agents produced a TutorResponse.
type ResponseMetadata struct {
	RequestID      string        `json:"request_id"`
	AgentsInvolved []AgentType   `json:"agents_involved"`
	FailedAgents   []AgentType   `json:"failed_agents,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// TutorResponse is the merged answer returned to the student for one query.
type TutorResponse struct {
	Type                ResponseType         `json:"type"`
	Text                string               `json:"text"`
	Confidence          float64              `json:"confidence"`
	Visualizations      []Visualization      `json:"visualizations,omitempty"`
	Videos              []VideoResult        `json:"videos,omitempty"`
	Assessments         []AssessmentItem     `json:"assessments,omitempty"`
	Resources           []Resource           `json:"resources,omitempty"`
	InteractiveElements []InteractiveElement `json:"interactive_elements,omitempty"`
	Sources             []string             `json:"sources,omitempty"`
	FollowUpSuggestions []string             `json:"follow_up_suggestions,omitempty"`
	Metadata            ResponseMetadata     `json:"metadata"`
}

// GeneratedContent is one rendered piece of content in a single modality.
type GeneratedContent struct {
	ID          string            `json:"id"`
	Concept     string            `json:"concept"`
	Modality    Modality          `json:"modality"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}
