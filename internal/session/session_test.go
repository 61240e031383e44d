package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/models"
)

type fakeProcessor struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	started chan struct{}
	ctxErr  error
}

func (f *fakeProcessor) ProcessAudioQuery(ctx context.Context, blob models.AudioBlob, userID string, cv models.CVData) (*models.TurnResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return &models.TurnResult{
		Transcript:    "What was your role at " + cv.Experience[0].Company + "?",
		Response:      "Senior Engineer.",
		Audio:         []byte("RIFF"),
		AudioMIMEType: "audio/wav",
	}, nil
}

type fakeCVSource struct {
	err error
}

func (f *fakeCVSource) LatestCV(ctx context.Context, userID string) (*models.CVData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CVData{Experience: []models.Experience{{Role: "Senior Engineer", Company: "Acme"}}}, nil
}

var blob = models.AudioBlob{Data: []byte("audio"), MIMEType: "audio/webm"}

func TestSubmitSuccessAppendsHistory(t *testing.T) {
	s := New("u1", &fakeProcessor{}, &fakeCVSource{}, 0, nil)

	result, err := s.Submit(context.Background(), blob)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Response != "Senior Engineer." {
		t.Errorf("response = %q", result.Response)
	}

	if s.State() != StateProcessing {
		t.Errorf("state = %s, want processing until playback finishes", s.State())
	}
	history := s.History()
	if len(history) != 2 {
		t.Fatalf("history = %d turns, want 2", len(history))
	}
	if history[0].Speaker != models.SpeakerUser || history[0].Content != "What was your role at Acme?" {
		t.Errorf("user turn = %+v", history[0])
	}
	if history[1].Speaker != models.SpeakerAssistant || history[1].Content != "Senior Engineer." {
		t.Errorf("assistant turn = %+v", history[1])
	}

	s.PlaybackFinished()
	if s.State() != StateIdle {
		t.Errorf("state = %s after playback", s.State())
	}
}

func TestSubmitWhileProcessingRejected(t *testing.T) {
	proc := &fakeProcessor{}
	s := New("u1", proc, &fakeCVSource{}, 0, nil)

	if _, err := s.Submit(context.Background(), blob); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// playback still in progress
	_, err := s.Submit(context.Background(), blob)
	if !errors.Is(err, apperrors.ErrTurnInProgress) {
		t.Fatalf("expected ErrTurnInProgress, got %v", err)
	}
	if proc.calls != 1 {
		t.Errorf("processor calls = %d, want 1", proc.calls)
	}
}

func TestConcurrentSubmitOnlyOneRuns(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{}), started: make(chan struct{})}
	s := New("u1", proc, &fakeCVSource{}, 0, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), blob)
		done <- err
	}()
	<-proc.started

	if _, err := s.Submit(context.Background(), blob); !errors.Is(err, apperrors.ErrTurnInProgress) {
		t.Fatalf("expected ErrTurnInProgress, got %v", err)
	}
	close(proc.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

func TestSubmitFailureReturnsToIdle(t *testing.T) {
	cause := apperrors.Wrap(apperrors.ErrTranscriptionFailed, "Transcribe", errors.New("boom"))
	s := New("u1", &fakeProcessor{err: cause}, &fakeCVSource{}, 0, nil)

	_, err := s.Submit(context.Background(), blob)
	if !errors.Is(err, apperrors.ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
	if s.Notice() != FailureNotice {
		t.Errorf("notice = %q", s.Notice())
	}
	if len(s.History()) != 0 {
		t.Error("failed turns add no history")
	}
}

func TestSubmitWithoutCV(t *testing.T) {
	proc := &fakeProcessor{}
	s := New("u1", proc, &fakeCVSource{err: apperrors.New(apperrors.ErrDocumentNotFound, "LatestCV", "none")}, 0, nil)

	_, err := s.Submit(context.Background(), blob)
	if !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if proc.calls != 0 || s.State() != StateIdle {
		t.Errorf("calls = %d, state = %s", proc.calls, s.State())
	}
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	proc := &fakeProcessor{}
	s := New("u1", proc, &fakeCVSource{}, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if _, err := s.Submit(ctx, blob); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if proc.ctxErr != nil {
		t.Errorf("processor saw cancelled context: %v", proc.ctxErr)
	}
}

func TestNoticeClearedOnNextTurn(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("boom")}
	s := New("u1", proc, &fakeCVSource{}, 0, nil)

	_, _ = s.Submit(context.Background(), blob)
	proc.err = nil
	if _, err := s.Submit(context.Background(), blob); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.Notice() != "" {
		t.Errorf("notice = %q", s.Notice())
	}
}

func TestUnconfirmedPlaybackExpires(t *testing.T) {
	proc := &fakeProcessor{}
	s := New("u1", proc, &fakeCVSource{}, time.Minute, nil)
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	if _, err := s.Submit(context.Background(), blob); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	clock = clock.Add(59 * time.Second)
	if _, err := s.Submit(context.Background(), blob); !errors.Is(err, apperrors.ErrTurnInProgress) {
		t.Fatalf("before the deadline: expected ErrTurnInProgress, got %v", err)
	}

	clock = clock.Add(time.Second)
	if s.State() != StateIdle {
		t.Fatalf("state = %s after the playback deadline", s.State())
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Submit(context.Background(), blob); err != nil {
			t.Fatalf("turn %d after deadline: %v", i+2, err)
		}
		clock = clock.Add(time.Minute)
	}
	if proc.calls != 4 {
		t.Errorf("processor calls = %d, want 4", proc.calls)
	}
}

func TestRegistryPassesPlaybackTimeout(t *testing.T) {
	r := NewRegistry(&fakeProcessor{}, &fakeCVSource{}, 30*time.Second, nil)
	if got := r.Get("u1").playbackTimeout; got != 30*time.Second {
		t.Errorf("playback timeout = %v", got)
	}
}

func TestRegistryOneSessionPerUser(t *testing.T) {
	r := NewRegistry(&fakeProcessor{}, &fakeCVSource{}, 0, nil)

	if _, ok := r.Lookup("u1"); ok {
		t.Fatal("no session before first use")
	}
	a := r.Get("u1")
	if r.Get("u1") != a {
		t.Error("expected the same session for the same user")
	}
	if r.Get("u2") == a {
		t.Error("expected distinct sessions per user")
	}
	if got, ok := r.Lookup("u1"); !ok || got != a || got.UserID() != "u1" {
		t.Error("lookup should return the existing session")
	}
}
