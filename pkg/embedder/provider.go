package embedder

import (
	"context"
	"fmt"
)

// Provider names accepted by New.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Options selects and configures an embedding provider.
type Options struct {
	Provider  string
	Model     string
	Dimension int
	APIKey    string
}

// New constructs the configured provider. Remote providers are wrapped in a
// query memo.
func New(ctx context.Context, opts Options) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)

	switch opts.Provider {
	case "", ProviderHash:
		return NewHashEmbedder(opts.Dimension), nil
	case ProviderOpenAI:
		inner, err = NewOpenAIEmbedder(opts.APIKey, opts.Model)
	case ProviderGemini:
		inner, err = NewGeminiEmbedder(ctx, opts.APIKey, opts.Model, opts.Dimension)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrUnavailable, opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewCached(inner)
}
