// Package llm manages the chain of model providers: prompt construction,
// API calls with fallback and retry, and parsing of structured verdicts.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
)

// Provider is one model in the fallback chain. Identity is the opaque model
// name; the only capability the service distinguishes is image support for
// the validation call.
type Provider interface {
	Name() string
	SupportsImages() bool
	// Generate returns the raw text completion. Images are ignored by
	// providers that don't support them; jsonMode asks the provider for a
	// JSON object response where supported.
	Generate(ctx context.Context, prompt string, images [][]byte, jsonMode bool) (string, error)
}

// NewProvider builds a provider for an opaque model identifier using the
// configured credentials. Gemini-family names (gemini*, gemma*) route to the
// Google API; gpt* routes to OpenAI.
func NewProvider(ctx context.Context, modelName string, cfg config.LLMConfig) (Provider, error) {
	switch {
	case strings.HasPrefix(modelName, "gemini") || strings.HasPrefix(modelName, "gemma"):
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("model %s requires GEMINI_API_KEY", modelName)
		}
		model, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("init google provider %s: %w", modelName, err)
		}
		return &langchainProvider{name: modelName, model: model, images: true}, nil

	case strings.HasPrefix(modelName, "gpt"):
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("model %s requires OPENAI_API_KEY", modelName)
		}
		model, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("init openai provider %s: %w", modelName, err)
		}
		return &langchainProvider{name: modelName, model: model, images: false}, nil

	default:
		return nil, fmt.Errorf("unsupported model provider for %q", modelName)
	}
}

// langchainProvider adapts a langchaingo model to the Provider contract.
type langchainProvider struct {
	name   string
	model  llms.Model
	images bool
}

func (p *langchainProvider) Name() string         { return p.name }
func (p *langchainProvider) SupportsImages() bool { return p.images }

func (p *langchainProvider) Generate(ctx context.Context, prompt string, images [][]byte, jsonMode bool) (string, error) {
	parts := []llms.ContentPart{llms.TextPart(prompt)}
	if p.images {
		for _, img := range images {
			parts = append(parts, llms.BinaryPart("image/jpeg", img))
		}
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You are an expert AI agent for Oracle ERP systems. Respond only as instructed."),
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	var opts []llms.CallOption
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := p.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider %s returned no choices", p.name)
	}
	return resp.Choices[0].Content, nil
}
