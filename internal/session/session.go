// Package session holds the per-user interview turn state and conversation history.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
)

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
)

// FailureNotice is shown to the user when a turn fails.
const FailureNotice = "Failed to process query"

type Processor interface {
	ProcessAudioQuery(ctx context.Context, blob models.AudioBlob, userID string, cv models.CVData) (*models.TurnResult, error)
}

// CVSource returns the CV the interview is grounded on.
type CVSource interface {
	LatestCV(ctx context.Context, userID string) (*models.CVData, error)
}

// Session allows one turn in flight. After a successful turn it stays in
// StateProcessing until PlaybackFinished is called or, when playbackTimeout
// is positive, until that much time has passed since the reply was ready.
type Session struct {
	userID          string
	processor       Processor
	cvSource        CVSource
	playbackTimeout time.Duration
	logger          *zap.Logger
	now             func() time.Time

	mu               sync.Mutex
	state            State
	notice           string
	playbackDeadline time.Time
	turns            []models.ConversationTurn
}

func New(userID string, processor Processor, cvSource CVSource, playbackTimeout time.Duration, log *zap.Logger) *Session {
	return &Session{
		userID:          userID,
		processor:       processor,
		cvSource:        cvSource,
		playbackTimeout: playbackTimeout,
		logger:          logger.ForUser(logger.OrNop(log), userID),
		now:             time.Now,
		state:           StateIdle,
	}
}

func (s *Session) UserID() string {
	return s.userID
}

// Submit runs one turn for blob. The turn is not cancelled when ctx is.
func (s *Session) Submit(ctx context.Context, blob models.AudioBlob) (*models.TurnResult, error) {
	s.mu.Lock()
	s.expirePlaybackLocked()
	if s.state == StateProcessing {
		s.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrTurnInProgress, "Submit", "session %s is busy", s.userID)
	}
	s.state = StateProcessing
	s.notice = ""
	s.playbackDeadline = time.Time{}
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)

	result, err := s.run(ctx, blob)
	if err != nil {
		s.logger.Error("error processing audio", zap.Error(err))
		s.mu.Lock()
		s.state = StateIdle
		s.notice = FailureNotice
		s.mu.Unlock()
		return nil, err
	}

	at := s.now()
	s.mu.Lock()
	s.turns = append(s.turns,
		models.ConversationTurn{Speaker: models.SpeakerUser, Content: result.Transcript, At: at},
		models.ConversationTurn{Speaker: models.SpeakerAssistant, Content: result.Response, At: at},
	)
	if s.playbackTimeout > 0 {
		s.playbackDeadline = at.Add(s.playbackTimeout)
	}
	s.mu.Unlock()

	return result, nil
}

func (s *Session) run(ctx context.Context, blob models.AudioBlob) (*models.TurnResult, error) {
	cv, err := s.cvSource.LatestCV(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	return s.processor.ProcessAudioQuery(ctx, blob, s.userID, *cv)
}

// PlaybackFinished returns the session to StateIdle.
func (s *Session) PlaybackFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.playbackDeadline = time.Time{}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expirePlaybackLocked()
	return s.state
}

// expirePlaybackLocked ends a playback the client never reported finished.
// s.mu must be held.
func (s *Session) expirePlaybackLocked() {
	if s.state != StateProcessing || s.playbackDeadline.IsZero() {
		return
	}
	if s.now().Before(s.playbackDeadline) {
		return
	}
	s.logger.Debug("playback not confirmed, returning to idle",
		zap.Time("deadline", s.playbackDeadline))
	s.state = StateIdle
	s.playbackDeadline = time.Time{}
}

// Notice returns the message left by the last failed turn, if any.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// History returns a copy of the conversation so far, oldest first.
func (s *Session) History() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationTurn(nil), s.turns...)
}
