package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/provider"
)

// ConversationAgent normalizes raw student queries into a ProcessedQuery:
// intent, subject, extracted concepts, complexity estimate and the boolean
// need flags the orchestrator's rule table consumes. Classification is
// rule-based and deterministic; the AI layer only enriches the
// conversational acknowledgment text, so an AI outage degrades wording, not
// the critical path.
type ConversationAgent struct {
	*BaseAgent
	services provider.ServiceLayer
}

// NewConversationAgent constructs the conversation agent with its 30 second
// processing deadline.
func NewConversationAgent(deps Deps, optFns ...func(c *Config)) *ConversationAgent {
	cfg := DefaultConfig(core.AgentConversation)
	cfg.Timeout = 30 * time.Second
	cfg.Priority = core.PriorityHigh
	for _, fn := range optFns {
		fn(&cfg)
	}
	a := &ConversationAgent{services: deps.Services}
	a.BaseAgent = NewBaseAgent(cfg, deps)
	a.bind(a)
	return a
}

// Process implements Processor.
func (a *ConversationAgent) Process(ctx context.Context, msg core.Message) (core.Payload, error) {
	payload, ok := msg.Payload.(core.AnalyzeQueryPayload)
	if !ok {
		return nil, core.NewUnsupportedOperationError(a.Type(), msg.ID, msg.Payload)
	}
	if strings.TrimSpace(payload.Text) == "" {
		return nil, core.NewInvalidMessageError(a.Type(), msg.ID, "empty query text")
	}

	query := classifyQuery(payload.Text, payload.Context)

	contribution := core.Contribution{
		Text:       acknowledgment(query),
		Confidence: 0.75,
	}
	if result, err := a.services.QueryAI(ctx, acknowledgmentPrompt(payload.Text, query), payload.Context, payload.Context.SessionID); err == nil {
		contribution.Text = result.Response
		contribution.Confidence = result.Confidence
	} else {
		a.logger.Warn("ai acknowledgment unavailable, using template", "error", err)
	}

	return core.QueryAnalysisPayload{Query: query, Contribution: contribution}, nil
}

func acknowledgmentPrompt(text string, q core.ProcessedQuery) string {
	return fmt.Sprintf("In two sentences, acknowledge this student question and frame what you will cover (subject: %s, concept: %s): %q",
		q.Subject, q.PrimaryConcept(), text)
}

func acknowledgment(q core.ProcessedQuery) string {
	concept := q.PrimaryConcept()
	if concept == "" {
		return "Let's work through your question together."
	}
	return fmt.Sprintf("Let's work through %s step by step.", concept)
}

var subjectKeywords = map[string][]string{
	"chemistry": {"reaction", "molecule", "substitution", "bond", "acid", "electron", "orbital", "compound", "organic", "sn1", "sn2"},
	"biology":   {"cell", "dna", "protein", "photosynthesis", "osmosis", "mitosis", "enzyme", "organism"},
	"physics":   {"force", "velocity", "momentum", "energy", "gravity", "wave", "quantum", "circuit"},
	"math":      {"equation", "derivative", "integral", "matrix", "theorem", "function", "probability", "algebra"},
	"cs":        {"algorithm", "recursion", "pointer", "compiler", "hash", "sorting", "binary"},
}

var queryStopwords = map[string]bool{
	"how": true, "does": true, "do": true, "what": true, "why": true, "is": true,
	"are": true, "the": true, "a": true, "an": true, "of": true, "in": true,
	"to": true, "me": true, "work": true, "works": true, "can": true, "you": true,
	"explain": true, "about": true, "please": true, "i": true, "my": true,
	"show": true, "give": true, "tell": true, "understand": true, "help": true,
	"with": true, "for": true, "this": true, "that": true,
}

// classifyQuery runs the fixed rule table over the raw text. It never fails:
// every query classifies to at least an explanation intent with one concept.
func classifyQuery(text string, queryCtx core.QueryContext) core.ProcessedQuery {
	lower := strings.ToLower(text)

	q := core.ProcessedQuery{
		Intent:  "explanation",
		Subject: detectSubject(lower),
	}

	switch {
	case containsAny(lower, "quiz", "test me", "practice problem", "practice question", "assess"):
		q.Intent = "assessment"
		q.NeedsAssessment = true
	case containsAny(lower, "video", "resources", "where can i read", "reading list", "more material"):
		q.Intent = "resources"
		q.NeedsResources = true
	case containsAny(lower, "give up", "frustrated", "too hard", "can't do this", "hopeless"):
		q.Intent = "encouragement"
		q.WantsEncouragement = true
	case containsAny(lower, "check my", "did i get", "is this right", "is my answer"):
		q.Intent = "feedback"
		q.WantsFeedback = true
	}

	if q.Intent == "explanation" || q.Intent == "feedback" {
		q.NeedsExplanation = true
	}
	if containsAny(lower, "show", "visual", "diagram", "draw", "look like", "3d", "animate", "picture") {
		q.NeedsVisualization = true
	} else if q.NeedsExplanation && visualSubject(q.Subject) {
		// Visual-heavy subjects get a visualization by default.
		q.NeedsVisualization = true
	}
	if containsAny(lower, "study plan", "how should i learn", "where do i start", "learning path") ||
		queryCtx.StudentLevel == "beginner" {
		q.NeedsGuidance = true
	}

	q.Concepts = extractConcepts(lower)
	q.Complexity = estimateComplexity(lower, q.Subject)
	return q
}

func visualSubject(subject string) bool {
	switch subject {
	case "chemistry", "biology", "physics":
		return true
	}
	return false
}

func detectSubject(lower string) string {
	best, bestHits := "general", 0
	for subject, words := range subjectKeywords {
		hits := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && subject < best) {
			best, bestHits = subject, hits
		}
	}
	return best
}

// extractConcepts strips interrogative scaffolding and returns the remaining
// phrase as the primary concept, plus its individual significant tokens.
func extractConcepts(lower string) []string {
	trimmed := strings.TrimRight(lower, "?!. ")
	var kept []string
	for _, tok := range strings.Fields(trimmed) {
		tok = strings.Trim(tok, ",;:'\"()")
		if tok == "" || queryStopwords[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return []string{"general study skills"}
	}
	concepts := []string{strings.Join(kept, " ")}
	if len(kept) > 1 {
		concepts = append(concepts, kept...)
	}
	if len(concepts) > 6 {
		concepts = concepts[:6]
	}
	return concepts
}

func estimateComplexity(lower, subject string) int {
	complexity := 3
	words := len(strings.Fields(lower))
	if words > 12 {
		complexity += 2
	} else if words > 6 {
		complexity++
	}
	if subject != "general" {
		complexity++
	}
	if containsAny(lower, "mechanism", "derive", "prove", "quantum", "stereochemistry", "kinetics", "asymptotic") {
		complexity += 2
	}
	if complexity > 10 {
		complexity = 10
	}
	return complexity
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
