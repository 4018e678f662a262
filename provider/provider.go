package provider

import (
	"context"
	"errors"
	"time"

	"github.com/biddeed/deedscout/models"
	openai_provider "github.com/biddeed/deedscout/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the interface that all LLM implementations must satisfy.
type Provider interface {
	// ChatCompletion sends the full conversation and returns the generated
	// text verbatim. An empty string with a nil error means the collaborator
	// succeeded but produced no text; the caller decides what to substitute.
	ChatCompletion(ctx context.Context, turns []models.ChatTurn) (string, models.Usage, error)
	// CreateEmbedding generates one vector per input text.
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Options carries explicit provider configuration. No environment reads
// happen here; the caller wires credentials in so instances stay
// independently testable against stub collaborators.
type Options struct {
	APIKey         string
	BaseURL        string // override for tests and OpenAI-compatible gateways
	Model          string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
}

// NewProvider creates a new LLM client based on the provided configuration.
func NewProvider(client Client, opts Options) (Provider, error) {
	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewClient(openai_provider.Options{
			APIKey:         opts.APIKey,
			BaseURL:        opts.BaseURL,
			Model:          opts.Model,
			EmbeddingModel: opts.EmbeddingModel,
			Temperature:    opts.Temperature,
			MaxTokens:      opts.MaxTokens,
			Timeout:        opts.Timeout,
		}), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
