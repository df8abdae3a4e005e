// Package gemini implements generation.Generator using Google's Gemini
// API. It is the production backend for the workflow engine's default
// content processors.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/parcelflow/parcelflow-api/internal/config"
	"github.com/parcelflow/parcelflow-api/internal/generation"
	"google.golang.org/genai"
)

// defaultPromptTemplate shapes every generation request. The workflow
// context is serialized as JSON so the model sees exactly what earlier
// steps produced.
const defaultPromptTemplate = `You are a real-estate marketing assistant.
Produce {{.Kind}} for the property and context below.
Respond with a single JSON object whose keys are the output names.

Context:
{{.ContextJSON}}
`

// maxAttempts bounds retries for transient API failures. Task-level
// retries in the orchestrator sit above this, so the budget here stays
// small.
const maxAttempts = 3

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger         *slog.Logger
	client         *genai.Client
	model          string
	promptTemplate *template.Template
}

// NewGenerator creates a Gemini-backed Generator from the LLM
// configuration. Returns generation.ErrInvalidConfig if the API key or
// model name is missing.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("content").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:         logger.With("component", "gemini_generator"),
		client:         client,
		model:          cfg.ModelName,
		promptTemplate: promptTemplate,
	}, nil
}

// GenerateListingContent produces content for the given request by
// prompting Gemini and parsing the response as a JSON object.
func (g *Generator) GenerateListingContent(ctx context.Context, req generation.Request) (*generation.Result, error) {
	prompt, err := g.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			lastErr = err
			g.logger.Warn("gemini call failed",
				"attempt", attempt,
				"kind", req.Kind,
				"error", err)

			// Linear backoff is enough here; the orchestrator owns the
			// real retry policy.
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			continue
		}

		text := resp.Text()
		if text == "" {
			return nil, fmt.Errorf("%w: empty response from model", generation.ErrContentBlocked)
		}

		content, err := parseContent(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}

		g.logger.Debug("content generated",
			"kind", req.Kind,
			"output_keys", len(content))

		return &generation.Result{Content: content}, nil
	}

	return nil, fmt.Errorf("%w: exceeded %d attempts: %v", generation.ErrTransient, maxAttempts, lastErr)
}

// buildPrompt renders the prompt template with the request's kind and
// serialized context.
func (g *Generator) buildPrompt(req generation.Request) (string, error) {
	contextJSON, err := json.MarshalIndent(req.Context, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode context: %v", generation.ErrGenerationFailed, err)
	}

	var buf bytes.Buffer
	err = g.promptTemplate.Execute(&buf, struct {
		Kind        string
		ContextJSON string
	}{
		Kind:        req.Kind,
		ContextJSON: string(contextJSON),
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to render prompt: %v", generation.ErrGenerationFailed, err)
	}

	return buf.String(), nil
}

// parseContent extracts the JSON object from the model's response,
// tolerating a markdown code fence around it.
func parseContent(text string) (map[string]any, error) {
	start := -1
	depth := 0
	for i, r := range text {
		if r == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if r == '}' {
			depth--
			if depth == 0 && start >= 0 {
				var content map[string]any
				if err := json.Unmarshal([]byte(text[start:i+1]), &content); err != nil {
					return nil, fmt.Errorf("response is not a valid JSON object: %w", err)
				}
				return content, nil
			}
		}
	}
	return nil, errors.New("no JSON object found in model response")
}
