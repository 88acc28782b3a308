package gemini

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/phelanor/goalforge/internal/config"
	"github.com/phelanor/goalforge/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// writeTemplate writes a prompt template to a temp file and returns its path.
func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testLLMConfig(t *testing.T) config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:       "test-api-key",
		ModelName:          "gemini-2.0-flash",
		PromptTemplatePath: writeTemplate(t, "Respond with JSON. {{.Payload}}"),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewGeminiGenerator(t *testing.T) {
	gen, err := NewGeminiGenerator(context.Background(), testLogger(), testLLMConfig(t))
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "gemini-2.0-flash", gen.model)
}

func TestNewGeminiGeneratorValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewGeminiGenerator(ctx, nil, testLLMConfig(t))
		assert.Error(t, err)
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := testLLMConfig(t)
		cfg.GeminiAPIKey = ""
		_, err := NewGeminiGenerator(ctx, testLogger(), cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing model name", func(t *testing.T) {
		cfg := testLLMConfig(t)
		cfg.ModelName = ""
		_, err := NewGeminiGenerator(ctx, testLogger(), cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing template path", func(t *testing.T) {
		cfg := testLLMConfig(t)
		cfg.PromptTemplatePath = ""
		_, err := NewGeminiGenerator(ctx, testLogger(), cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("unreadable template", func(t *testing.T) {
		cfg := testLLMConfig(t)
		cfg.PromptTemplatePath = filepath.Join(t.TempDir(), "missing.tmpl")
		_, err := NewGeminiGenerator(ctx, testLogger(), cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("malformed template", func(t *testing.T) {
		cfg := testLLMConfig(t)
		cfg.PromptTemplatePath = writeTemplate(t, "{{.Payload")
		_, err := NewGeminiGenerator(ctx, testLogger(), cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestCreatePrompt(t *testing.T) {
	gen, err := NewGeminiGenerator(context.Background(), testLogger(), testLLMConfig(t))
	require.NoError(t, err)

	prompt, err := gen.createPrompt("Goal: Learn Spanish")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Respond with JSON.")
	assert.Contains(t, prompt, "Goal: Learn Spanish")

	_, err = gen.createPrompt("")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

// textResponse builds a response carrying a single text part.
func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

func TestParseResponse(t *testing.T) {
	gen, err := NewGeminiGenerator(context.Background(), testLogger(), testLLMConfig(t))
	require.NoError(t, err)

	t.Run("valid item", func(t *testing.T) {
		parsed, err := gen.parseResponse(textResponse(`{"title": "Build a base", "detail": "Run three times a week"}`))
		require.NoError(t, err)
		assert.Equal(t, "Build a base", parsed.Title)
		assert.Equal(t, "Run three times a week", parsed.Detail)
	})

	t.Run("nil response", func(t *testing.T) {
		_, err := gen.parseResponse(nil)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := gen.parseResponse(&genai.GenerateContentResponse{})
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("safety blocked", func(t *testing.T) {
		resp := textResponse("partial")
		resp.Candidates[0].FinishReason = genai.FinishReasonSafety
		_, err := gen.parseResponse(resp)
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := gen.parseResponse(textResponse(""))
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := gen.parseResponse(textResponse("not json at all"))
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := gen.parseResponse(textResponse(`{"detail": "no title"}`))
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})
}
