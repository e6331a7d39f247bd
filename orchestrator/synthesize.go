package orchestrator

import (
	"time"

	"github.com/tutormesh/tutormesh/core"
)

// mergeOrder fixes the order in which contributions are folded into the
// response, so synthesis is deterministic regardless of completion order.
var mergeOrder = []core.AgentType{
	core.AgentConversation,
	core.AgentContentSpecialist,
	core.AgentVisualLearning,
	core.AgentAssessment,
	core.AgentResource,
	core.AgentPedagogy,
}

// synthesize merges the surviving contributions into one TutorResponse.
// Confidence is the mean of the reported per-agent confidences, defaulting
// to 0.7 when no agent reported one. Sources and follow-ups are
// de-duplicated preserving first appearance.
func synthesize(q core.ProcessedQuery, contributions map[core.AgentType]core.Contribution) core.TutorResponse {
	resp := core.TutorResponse{Type: responseType(q)}

	var (
		textParts  []string
		confSum    float64
		confCount  int
		seenSource = map[string]bool{}
		seenFollow = map[string]bool{}
	)
	for _, at := range mergeOrder {
		c, ok := contributions[at]
		if !ok {
			continue
		}
		if c.Text != "" {
			textParts = append(textParts, c.Text)
		}
		if c.Confidence > 0 {
			confSum += c.Confidence
			confCount++
		}
		resp.Visualizations = append(resp.Visualizations, c.Visualizations...)
		resp.Videos = append(resp.Videos, c.Videos...)
		resp.Assessments = append(resp.Assessments, c.Assessments...)
		resp.Resources = append(resp.Resources, c.Resources...)
		resp.InteractiveElements = append(resp.InteractiveElements, c.InteractiveElements...)
		for _, s := range c.Sources {
			if !seenSource[s] {
				seenSource[s] = true
				resp.Sources = append(resp.Sources, s)
			}
		}
		for _, f := range c.FollowUps {
			if !seenFollow[f] {
				seenFollow[f] = true
				resp.FollowUpSuggestions = append(resp.FollowUpSuggestions, f)
			}
		}
	}

	resp.Text = joinParts(textParts)
	if confCount > 0 {
		resp.Confidence = confSum / float64(confCount)
	} else {
		resp.Confidence = 0.7
	}
	return resp
}

// responseType applies the precedence rules over the processed query:
// assessment > resources > encouragement > feedback > explanation.
func responseType(q core.ProcessedQuery) core.ResponseType {
	switch {
	case q.NeedsAssessment:
		return core.ResponseAssessment
	case q.NeedsResources:
		return core.ResponseResources
	case q.WantsEncouragement:
		return core.ResponseEncouragement
	case q.WantsFeedback:
		return core.ResponseFeedback
	default:
		return core.ResponseExplanation
	}
}

func joinParts(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n\n" + p
	}
	return out
}

// contributionOrder lists the contributing agents in merge order.
func contributionOrder(contributions map[core.AgentType]core.Contribution) []core.AgentType {
	var out []core.AgentType
	for _, at := range mergeOrder {
		if _, ok := contributions[at]; ok {
			out = append(out, at)
		}
	}
	return out
}

// degradedResponse is the fixed answer for unrecoverable failures: an
// apology with zero confidence and generic next steps, never a raw error.
func degradedResponse(requestID string, elapsed time.Duration) core.TutorResponse {
	return core.TutorResponse{
		Type:       core.ResponseExplanation,
		Text:       "I'm sorry, I wasn't able to put together a full answer just now. Could you try asking again, perhaps with a bit more detail?",
		Confidence: 0,
		FollowUpSuggestions: []string{
			"Try rephrasing your question.",
			"Break the question into smaller parts.",
			"Ask about one specific concept at a time.",
		},
		Metadata: core.ResponseMetadata{
			RequestID: requestID,
			Duration:  elapsed,
		},
	}
}
