package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
)

const (
	MaxAudioBytes        = 25 * 1024 * 1024
	MaxSpeechChars       = 4000
	TranscriptionLang    = "en"
	TranscriptionTemp    = 0.3
	SynthesizedAudioMIME = "audio/wav"
)

var supportedAudioTypes = map[string]bool{
	"audio/webm": true,
	"audio/wav":  true,
	"audio/mp3":  true,
	"audio/mpeg": true,
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string, opts TranscriptionOptions) (string, error)
}

type SpeechSynthesizer interface {
	Speak(ctx context.Context, text string, opts SpeechOptions) (*SpeechAudio, error)
}

type AudioService interface {
	ValidateAudioFormat(blob models.AudioBlob) error
	Transcribe(ctx context.Context, blob models.AudioBlob) (string, error)
	// Synthesize returns WAV-encoded speech for text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type audioService struct {
	transcriber Transcriber
	synthesizer SpeechSynthesizer
	voice       SpeechOptions
	logger      *zap.Logger
}

func NewAudioService(transcriber Transcriber, synthesizer SpeechSynthesizer, voice SpeechOptions, log *zap.Logger) AudioService {
	return &audioService{
		transcriber: transcriber,
		synthesizer: synthesizer,
		voice:       voice,
		logger:      logger.OrNop(log),
	}
}

// ValidateAudioFormat implements AudioService.
func (a *audioService) ValidateAudioFormat(blob models.AudioBlob) error {
	if len(blob.Data) == 0 {
		return apperrors.New(apperrors.ErrInvalidArgument, "ValidateAudioFormat", "audio blob is empty")
	}

	if len(blob.Data) > MaxAudioBytes {
		return apperrors.New(apperrors.ErrSizeLimitExceeded, "ValidateAudioFormat",
			"audio is %d bytes, limit is %d", len(blob.Data), MaxAudioBytes)
	}

	if !supportedAudioTypes[baseMIMEType(blob.MIMEType)] {
		return apperrors.New(apperrors.ErrUnsupportedFormat, "ValidateAudioFormat",
			"mime type %q; use WebM, WAV, or MP3", blob.MIMEType)
	}

	return nil
}

// Transcribe implements AudioService.
func (a *audioService) Transcribe(ctx context.Context, blob models.AudioBlob) (string, error) {
	if err := a.ValidateAudioFormat(blob); err != nil {
		return "", err
	}

	a.logger.Debug("starting audio transcription",
		zap.Int("blob_size", len(blob.Data)),
		zap.String("blob_type", blob.MIMEType),
	)

	transcript, err := a.transcriber.Transcribe(ctx, blob.Data, baseMIMEType(blob.MIMEType), TranscriptionOptions{
		Language:    TranscriptionLang,
		Temperature: TranscriptionTemp,
	})
	if err != nil {
		a.logger.Error("audio transcription failed", zap.Error(err))
		return "", apperrors.Wrap(apperrors.ErrTranscriptionFailed, "Transcribe", err)
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", apperrors.New(apperrors.ErrTranscriptionFailed, "Transcribe", "no speech recognized")
	}
	a.logger.Debug("transcription complete",
		zap.Int("transcript_length", len(transcript)),
		zap.String("sample", logger.TruncateForLog(transcript, 100)),
	)

	return transcript, nil
}

// Synthesize implements AudioService.
func (a *audioService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	input := TruncateForSpeech(text)

	a.logger.Debug("generating speech",
		zap.Int("text_length", len(input)),
		zap.String("sample", logger.TruncateForLog(input, 100)),
	)

	speech, err := a.synthesizer.Speak(ctx, input, a.voice)
	if err != nil {
		a.logger.Error("speech generation failed", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrSynthesisFailed, "Synthesize", err)
	}

	encoded, err := encodeWAV(speech)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSynthesisFailed, "Synthesize", err)
	}

	a.logger.Debug("speech generated", zap.Int("buffer_size", len(encoded)))
	return encoded, nil
}

// TruncateForSpeech cuts text longer than MaxSpeechChars characters to
// exactly that many, followed by "...". The cut ignores word boundaries.
func TruncateForSpeech(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxSpeechChars {
		return text
	}
	return string(runes[:MaxSpeechChars]) + "..."
}

func baseMIMEType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}

// encodeWAV wraps 16-bit PCM in a WAV container. The encoder needs a seekable
// writer, so the container is assembled in a temp file.
func encodeWAV(speech *SpeechAudio) ([]byte, error) {
	if speech == nil || len(speech.PCM) == 0 {
		return nil, fmt.Errorf("no audio returned")
	}
	if len(speech.PCM)%2 != 0 {
		return nil, fmt.Errorf("pcm payload not aligned")
	}

	channels := speech.Channels
	if channels <= 0 {
		channels = 1
	}

	samples := make([]int, len(speech.PCM)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(speech.PCM[i*2:])))
	}
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: speech.SampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}

	file, err := os.CreateTemp("", "voice_interview_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	enc := wav.NewEncoder(file, speech.SampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}

	data, err := os.ReadFile(file.Name())
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return data, nil
}
