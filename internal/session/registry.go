package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/logger"
)

// Registry keeps one Session per user, created on first use.
type Registry struct {
	processor       Processor
	cvSource        CVSource
	playbackTimeout time.Duration
	logger          *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates sessions that return to idle playbackTimeout after a
// reply when playback is never confirmed. Zero waits for confirmation.
func NewRegistry(processor Processor, cvSource CVSource, playbackTimeout time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		processor:       processor,
		cvSource:        cvSource,
		playbackTimeout: playbackTimeout,
		logger:          logger.OrNop(log),
		sessions:        make(map[string]*Session),
	}
}

func (r *Registry) Get(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s
	}
	s := New(userID, r.processor, r.cvSource, r.playbackTimeout, r.logger)
	r.sessions[userID] = s
	return s
}

// Lookup returns the user's session without creating one.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}
