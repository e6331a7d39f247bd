package adaptive

import (
	"sync"
	"time"

	"github.com/tutormesh/tutormesh/core"
)

type sessionKey struct {
	userID    string
	contentID string
}

// sessionTable tracks open learning sessions and their confusion timers.
type sessionTable struct {
	mu        sync.Mutex
	timers    map[sessionKey]*time.Timer
	threshold time.Duration
	events    *core.Emitter
}

func newSessionTable(threshold time.Duration, events *core.Emitter) *sessionTable {
	return &sessionTable{
		timers:    make(map[sessionKey]*time.Timer),
		threshold: threshold,
		events:    events,
	}
}

// start arms the confusion timer for the pair, replacing any running timer
// for the same pair.
func (s *sessionTable) start(userID, contentID, concept string) {
	key := sessionKey{userID: userID, contentID: contentID}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(s.threshold, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		s.events.Emit(core.SystemEvent{
			Type:    core.EventConfusionSuspected,
			UserID:  userID,
			Concept: concept,
			Detail:  map[string]string{"content_id": contentID},
		})
	})
}

func (s *sessionTable) stop(userID, contentID string) {
	key := sessionKey{userID: userID, contentID: contentID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *sessionTable) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
