package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
)

const cvAnalysisTemperature = 0.2

//go:embed schemas/cv.schema.json
var cvSchemaJSON string

var cvSchema = gojsonschema.NewStringLoader(cvSchemaJSON)

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
}

type CVAnalyzer interface {
	Analyze(ctx context.Context, cvText string) (*models.CVData, error)
}

type cvAnalyzer struct {
	generator     TextGenerator
	promptBuilder *PromptBuilder
	logger        *zap.Logger
}

func NewCVAnalyzer(generator TextGenerator, log *zap.Logger) CVAnalyzer {
	return &cvAnalyzer{
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
		logger:        logger.OrNop(log),
	}
}

// Analyze implements CVAnalyzer.
func (a *cvAnalyzer) Analyze(ctx context.Context, cvText string) (*models.CVData, error) {
	prompt := a.promptBuilder.BuildCVAnalysisPrompt(cvText)

	raw, err := a.generator.GenerateText(ctx, prompt, cvAnalysisTemperature)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze CV: %w", err)
	}

	a.logger.Debug("cv analysis response", zap.String("sample", logger.TruncateForLog(raw, 200)))

	cv, err := ParseCVData(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CV analysis: %w", err)
	}
	return cv, nil
}

// ParseCVData extracts the JSON object from a model reply, validates it and
// decodes it into CVData.
func ParseCVData(raw string) (*models.CVData, error) {
	jsonStr := extractJSON(raw)

	var doc map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	res, err := gojsonschema.Validate(cvSchema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to validate CV JSON: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	var cv models.CVData
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cv,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode CV data: %w", err)
	}

	if cv.Skills == nil {
		cv.Skills = []string{}
	}
	if cv.Experience == nil {
		cv.Experience = []models.Experience{}
	}
	return &cv, nil
}

// extractJSON strips markdown fences and surrounding prose from a model reply.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(response)
	}
	return response[start : end+1]
}
