package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/logger"
)

const (
	defaultChatModel      = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultSpeechModel    = "gemini-2.5-flash-preview-tts"
	defaultSpeechRate     = 24000
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole
	Content string
}

// ChatRequest is a system prompt followed by ordered role-tagged messages.
type ChatRequest struct {
	System      string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int32
}

type TranscriptionOptions struct {
	Language    string
	Temperature float32
}

type SpeechOptions struct {
	Voice string
	Speed float64
}

// SpeechAudio is raw little-endian 16-bit PCM.
type SpeechAudio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	// Chat returns an empty string without error when the model produced no content.
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string, opts TranscriptionOptions) (string, error)
	Speak(ctx context.Context, text string, opts SpeechOptions) (*SpeechAudio, error)
}

// modelsAPI is the subset of *genai.Models the service calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type GeminiOptions struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	SpeechModel    string
	// HTTPClient carries the process-wide timeout and retry policy.
	HTTPClient *http.Client
}

type geminiService struct {
	models      modelsAPI
	chatModel   string
	embedModel  string
	speechModel string
	logger      *zap.Logger
}

func NewGeminiService(ctx context.Context, opts GeminiOptions, log *zap.Logger) (GeminiService, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, apperrors.New(apperrors.ErrInitializationFailed, "NewGeminiService", "missing gemini api key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInitializationFailed, "NewGeminiService", fmt.Errorf("failed to create gemini client: %w", err))
	}

	return newGeminiService(client.Models, opts, log), nil
}

func newGeminiService(models modelsAPI, opts GeminiOptions, log *zap.Logger) *geminiService {
	return &geminiService{
		models:      models,
		chatModel:   orDefault(opts.ChatModel, defaultChatModel),
		embedModel:  orDefault(opts.EmbeddingModel, defaultEmbeddingModel),
		speechModel: orDefault(opts.SpeechModel, defaultSpeechModel),
		logger:      logger.OrNop(log).With(zap.String("ai_provider", "gemini")),
	}
}

// GenerateEmbedding implements GeminiService. Text is embedded whole; the
// model applies its own input limit.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	result, err := g.models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := g.models.GenerateContent(ctx, g.chatModel, genai.Text(prompt), config)
	if err != nil {
		g.logger.Warn("gemini generate failed", zap.String("ai_model", g.chatModel), zap.Error(err))
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.New("no text content in response")
	}

	return text, nil
}

// Chat implements GeminiService.
func (g *geminiService) Chat(ctx context.Context, req ChatRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == ChatRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.chatModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate chat completion: %w", err)
	}

	text := responseText(resp)
	g.logger.Debug("chat completion received",
		zap.String("ai_model", g.chatModel),
		zap.String("sample", logger.TruncateForLog(text, 100)),
	)
	return text, nil
}

// Transcribe implements GeminiService.
func (g *geminiService) Transcribe(ctx context.Context, audio []byte, mimeType string, opts TranscriptionOptions) (string, error) {
	language := orDefault(opts.Language, "en")
	instruction := fmt.Sprintf(
		"Transcribe this audio verbatim. The spoken language is %q. Return only the transcript text with no commentary.",
		language,
	)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}

	temperature := opts.Temperature
	resp, err := g.models.GenerateContent(ctx, g.chatModel, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe: %w", err)
	}

	return responseText(resp), nil
}

// Speak implements GeminiService.
func (g *geminiService) Speak(ctx context.Context, text string, opts SpeechOptions) (*SpeechAudio, error) {
	prompt := text
	if opts.Speed > 0 && opts.Speed != 1 {
		prompt = fmt.Sprintf("Read the following at %.1fx normal speed:\n%s", opts.Speed, text)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: opts.Voice},
			},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.speechModel, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, errors.New("speech response contained no audio")
	}

	return &SpeechAudio{
		PCM:        blob.Data,
		SampleRate: sampleRateFromMIME(blob.MIMEType),
		Channels:   1,
	}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
		// Only the first candidate with content counts.
		if builder.Len() > 0 {
			break
		}
	}

	return strings.TrimSpace(builder.String())
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

// sampleRateFromMIME reads the rate parameter of e.g. "audio/L16;codec=pcm;rate=24000".
func sampleRateFromMIME(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return defaultSpeechRate
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		return rate
	}
	return defaultSpeechRate
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
