package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
	"alfredoptarigan/voice-interview/internal/telemetry"
)

const (
	contextTopK         = 3
	contextThreshold    = 0.7
	responseTemperature = 0.7
	responseMaxTokens   = 300
)

type ChatCompleter interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

type InterviewService interface {
	// ProcessAudioQuery runs one turn: transcribe, retrieve prior context,
	// answer, remember the exchange and speak the answer.
	ProcessAudioQuery(ctx context.Context, blob models.AudioBlob, userID string, cv models.CVData) (*models.TurnResult, error)
}

type interviewService struct {
	audio         AudioService
	embeddings    EmbeddingService
	chat          ChatCompleter
	promptBuilder *PromptBuilder
	logger        *zap.Logger

	tracer   trace.Tracer
	turns    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewInterviewService(audio AudioService, embeddings EmbeddingService, chat ChatCompleter, log *zap.Logger) InterviewService {
	s := &interviewService{
		audio:         audio,
		embeddings:    embeddings,
		chat:          chat,
		promptBuilder: NewPromptBuilder(),
		logger:        logger.OrNop(log),
		tracer:        otel.Tracer(telemetry.ScopeName),
	}

	meter := otel.Meter(telemetry.ScopeName)
	var err error
	if s.turns, err = meter.Int64Counter("interview.turns",
		metric.WithDescription("Processed interview turns by outcome")); err != nil {
		s.logger.Warn("failed to initialize turn counter", zap.Error(err))
	}
	if s.duration, err = meter.Float64Histogram("interview.turn.duration",
		metric.WithDescription("Duration of interview turns"),
		metric.WithUnit("s")); err != nil {
		s.logger.Warn("failed to initialize turn histogram", zap.Error(err))
	}

	return s
}

// ProcessAudioQuery implements InterviewService.
func (s *interviewService) ProcessAudioQuery(ctx context.Context, blob models.AudioBlob, userID string, cv models.CVData) (result *models.TurnResult, err error) {
	ctx, span := s.tracer.Start(ctx, "interview.turn", trace.WithAttributes(attribute.String("user.id", userID)))
	start := time.Now()
	defer func() {
		s.record(ctx, span, start, err)
		span.End()
	}()

	log := logger.ForUser(s.logger, userID)
	log.Debug("processing audio query")

	transcript, err := traced(ctx, s.tracer, "interview.transcribe", func(ctx context.Context) (string, error) {
		return s.audio.Transcribe(ctx, blob)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("audio transcribed", zap.String("transcript", logger.TruncateForLog(transcript, 200)))

	queryVector, err := traced(ctx, s.tracer, "interview.embed_query", func(ctx context.Context) ([]float32, error) {
		return s.embeddings.Embed(ctx, transcript)
	})
	if err != nil {
		return nil, err
	}

	similar, err := traced(ctx, s.tracer, "interview.retrieve_context", func(ctx context.Context) ([]models.ScoredContent, error) {
		return s.embeddings.FindSimilar(ctx, queryVector, userID, models.EmbeddingTypeInterviewResponse, contextThreshold, contextTopK)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("context retrieved", zap.Int("matches", len(similar)))

	response, err := traced(ctx, s.tracer, "interview.generate_response", func(ctx context.Context) (string, error) {
		return s.respond(ctx, cv, similar, transcript)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("generated response", zap.String("response", logger.TruncateForLog(response, 200)))

	_, err = traced(ctx, s.tracer, "interview.store_exchange", func(ctx context.Context) (string, error) {
		exchange := FormatQAPair(transcript, response)
		vector, err := s.embeddings.Embed(ctx, exchange)
		if err != nil {
			return "", err
		}
		return s.embeddings.Store(ctx, exchange, vector, models.EmbeddingMetadata{
			Type:      models.EmbeddingTypeInterviewResponse,
			UserID:    userID,
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	speech, err := traced(ctx, s.tracer, "interview.synthesize", func(ctx context.Context) ([]byte, error) {
		return s.audio.Synthesize(ctx, response)
	})
	if err != nil {
		return nil, err
	}

	log.Info("interview turn complete", zap.Int("audio_bytes", len(speech)))
	return &models.TurnResult{
		Transcript:    transcript,
		Response:      response,
		Audio:         speech,
		AudioMIMEType: SynthesizedAudioMIME,
	}, nil
}

func (s *interviewService) respond(ctx context.Context, cv models.CVData, similar []models.ScoredContent, transcript string) (string, error) {
	response, err := s.chat.Chat(ctx, ChatRequest{
		System: InterviewSystemPrompt,
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: s.promptBuilder.BuildInterviewContext(cv, similar)},
			{Role: ChatRoleUser, Content: transcript},
		},
		Temperature: responseTemperature,
		MaxTokens:   responseMaxTokens,
	})
	if err != nil {
		return "", err
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return "", apperrors.New(apperrors.ErrNoResponseGenerated, "ProcessAudioQuery", "model returned no content")
	}
	return response, nil
}

// traced runs fn inside a child span named name.
func traced[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (s *interviewService) record(ctx context.Context, span trace.Span, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := apperrors.KindOf(err); kind != nil {
			span.SetAttributes(attribute.String("error.kind", kind.Error()))
		}
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if s.turns != nil {
		s.turns.Add(ctx, 1, attrs)
	}
	if s.duration != nil {
		s.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
