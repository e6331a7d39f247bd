// Package provider defines the external collaborator surface TutorMesh
// depends on: the AI query layer, video search, file access, event tracking
// and the health contract. Layer composes narrow backends behind the single
// ServiceLayer interface so deployments mix real and static implementations
// freely; the anthropic and openai subpackages supply real AI backends.
package provider

import (
	"context"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
)

// QueryResult is the AI layer's answer to one prompt.
type QueryResult struct {
	Response   string
	Confidence float64
}

// Health is the service-layer health snapshot gating agent readiness.
type Health struct {
	Status   string
	Services map[string]bool
}

// OK reports whether the layer as a whole is usable.
func (h Health) OK() bool { return h.Status == "healthy" }

// ServiceLayer is the full collaborator contract consumed by agents and the
// orchestrator. TrackEvent is fire-and-forget: implementations log failures
// instead of returning them.
type ServiceLayer interface {
	QueryAI(ctx context.Context, prompt string, queryCtx core.QueryContext, conversationID string) (QueryResult, error)
	SearchVideos(ctx context.Context, query, subject string) ([]core.VideoResult, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, content []byte) error
	TrackEvent(ctx context.Context, event string, data map[string]string)
	GetHealth(ctx context.Context) Health
}

// AIBackend answers prompts. Implementations live in the anthropic and openai
// subpackages; StaticAI serves tests and demos.
type AIBackend interface {
	Query(ctx context.Context, system, prompt string) (QueryResult, error)
	Name() string
}

// VideoSearcher finds external videos for a query within a subject.
type VideoSearcher interface {
	Search(ctx context.Context, query, subject string) ([]core.VideoResult, error)
}

// FileStore reads and writes collaborator-visible files.
type FileStore interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
}

// EventTracker receives fire-and-forget analytics events.
type EventTracker interface {
	Track(ctx context.Context, event string, data map[string]string)
}

// Options configures a Layer. Unset backends default to the static
// implementations.
type Options struct {
	AI      AIBackend
	Videos  VideoSearcher
	Files   FileStore
	Tracker EventTracker
	Logger  logging.Logger
}

// Layer composes narrow backends into the ServiceLayer contract.
type Layer struct {
	ai      AIBackend
	videos  VideoSearcher
	files   FileStore
	tracker EventTracker
	logger  logging.Logger
}

// NewLayer builds a ServiceLayer with static defaults for any unset backend.
func NewLayer(optFns ...func(o *Options)) *Layer {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.AI == nil {
		opts.AI = NewStaticAI()
	}
	if opts.Videos == nil {
		opts.Videos = NewStaticVideos()
	}
	if opts.Files == nil {
		opts.Files = NewMemoryFiles()
	}
	if opts.Tracker == nil {
		opts.Tracker = NewCountingTracker()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Layer{ai: opts.AI, videos: opts.Videos, files: opts.Files, tracker: opts.Tracker, logger: opts.Logger}
}

// QueryAI sends the prompt to the configured AI backend. The query context is
// folded into a system prompt so backends stay stateless.
func (l *Layer) QueryAI(ctx context.Context, prompt string, queryCtx core.QueryContext, conversationID string) (QueryResult, error) {
	system := buildSystemPrompt(queryCtx, conversationID)
	return l.ai.Query(ctx, system, prompt)
}

// SearchVideos delegates to the configured video searcher.
func (l *Layer) SearchVideos(ctx context.Context, query, subject string) ([]core.VideoResult, error) {
	return l.videos.Search(ctx, query, subject)
}

// ReadFile delegates to the configured file store.
func (l *Layer) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return l.files.Read(ctx, path)
}

// WriteFile delegates to the configured file store.
func (l *Layer) WriteFile(ctx context.Context, path string, content []byte) error {
	return l.files.Write(ctx, path, content)
}

// TrackEvent forwards the event to the tracker. Tracker panics or failures
// never surface to callers.
func (l *Layer) TrackEvent(ctx context.Context, event string, data map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("event tracker panicked", "event", event, "panic", r)
		}
	}()
	l.tracker.Track(ctx, event, data)
}

// GetHealth probes each backend that exposes a health signal. The layer is
// healthy only when every probing backend reports reachable.
func (l *Layer) GetHealth(ctx context.Context) Health {
	services := map[string]bool{
		"ai":     true,
		"videos": true,
		"files":  true,
	}
	if probe, ok := l.ai.(interface{ Healthy(context.Context) bool }); ok {
		services["ai"] = probe.Healthy(ctx)
	}
	if probe, ok := l.videos.(interface{ Healthy(context.Context) bool }); ok {
		services["videos"] = probe.Healthy(ctx)
	}
	if probe, ok := l.files.(interface{ Healthy(context.Context) bool }); ok {
		services["files"] = probe.Healthy(ctx)
	}
	status := "healthy"
	for _, up := range services {
		if !up {
			status = "degraded"
			break
		}
	}
	return Health{Status: status, Services: services}
}

func buildSystemPrompt(queryCtx core.QueryContext, conversationID string) string {
	system := "You are a patient tutor. Answer clearly for the student's level."
	if queryCtx.StudentLevel != "" {
		system += " Student level: " + queryCtx.StudentLevel + "."
	}
	if conversationID != "" {
		system += " Conversation: " + conversationID + "."
	}
	return system
}
