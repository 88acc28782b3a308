package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/template"

	"github.com/phelanor/goalforge/internal/config"
	"github.com/phelanor/goalforge/internal/domain"
	"github.com/phelanor/goalforge/internal/generation"
	"google.golang.org/genai"
)

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API to generate one planning item per work item.
type GeminiGenerator struct {
	logger *slog.Logger

	config config.LLMConfig

	// promptTemplate is the parsed template for creating prompts
	promptTemplate *template.Template

	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// Verify GeminiGenerator implements generation.Generator
var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new GeminiGenerator with the provided
// dependencies. The prompt template is read from
// config.PromptTemplatePath and must reference {{.Payload}}.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.PromptTemplatePath == "" {
		return nil, fmt.Errorf("%w: prompt template path cannot be empty", generation.ErrInvalidConfig)
	}

	templateContent, err := os.ReadFile(cfg.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			generation.ErrInvalidConfig, cfg.PromptTemplatePath, err)
	}

	promptTemplate, err := template.New("generation").Parse(string(templateContent))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:         logger,
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// GenerateItem produces one planning item for the given work item. It
// makes a single API call; transient failures are reported with
// generation.ErrTransientFailure so the caller can decide to retry.
func (g *GeminiGenerator) GenerateItem(ctx context.Context, item domain.WorkItem) (*domain.GeneratedItem, error) {
	prompt, err := g.createPrompt(item.Payload)
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "calling Gemini API",
		"item_id", item.ID,
		"model", g.model,
		"prompt_length", len(prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"item_id", item.ID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	parsed, err := g.parseResponse(resp)
	if err != nil {
		g.logger.WarnContext(ctx, "Gemini response rejected",
			"item_id", item.ID,
			"error", err)
		return nil, err
	}

	return &domain.GeneratedItem{
		ItemID: item.ID,
		Title:  parsed.Title,
		Detail: parsed.Detail,
	}, nil
}

// createPrompt renders the prompt template with the work item payload.
func (g *GeminiGenerator) createPrompt(payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, promptData{Payload: payload}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return buf.String(), nil
}

// parseResponse validates the API response and decodes the JSON item it
// carries. Safety-blocked content and malformed responses are permanent
// failures and mapped to their sentinel errors.
func (g *GeminiGenerator) parseResponse(resp *genai.GenerateContentResponse) (*itemSchema, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var parsed itemSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}

	if parsed.Title == "" {
		return nil, fmt.Errorf("%w: generated item missing title", generation.ErrInvalidResponse)
	}

	return &parsed, nil
}
