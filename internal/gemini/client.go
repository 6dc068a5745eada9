// Package gemini translates Markdown chunks with a Gemini model.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/logger"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.5-flash"

// requestTimeout bounds one GenerateContent call.
const requestTimeout = 3 * time.Minute

type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// Config selects the model and the language pair.
type Config struct {
	APIKey     string
	Model      string
	SourceLang string
	TargetLang string
}

// Client implements the single-call translation contract.
type Client struct {
	client   *genai.Client
	model    string
	generate generateFunc
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = DefaultModel
	}

	// option.WithHTTPClient drops the API key header injection, so timeouts
	// are applied per call through the context instead.
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "text/plain"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt(cfg.SourceLang, cfg.TargetLang))},
	}

	return &Client{
		client:   client,
		model:    modelName,
		generate: model.GenerateContent,
	}, nil
}

// Name identifies the backend in cache keys and logs.
func (c *Client) Name() string { return "gemini:" + c.model }

// Close closes the underlying genai client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Translate sends one chunk and returns the model's translation.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.generate(ctx, genai.Text(text))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	out, err := extractResponseText(resp)
	if err != nil {
		return "", apperrors.Parse(err)
	}
	if resp.UsageMetadata != nil {
		logger.Debug("Gemini usage",
			"model", c.model,
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"candidate_tokens", resp.UsageMetadata.CandidatesTokenCount,
		)
	}
	return out, nil
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				combined.WriteString(string(text))
			}
		}
		if strings.TrimSpace(combined.String()) != "" {
			return combined.String(), nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
