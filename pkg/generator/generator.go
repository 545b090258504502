// Package generator wraps the language models that phrase the final answer.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/persona"
)

var (
	// ErrEmptyResponse is returned when a model answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrUnavailable is returned when a provider cannot be constructed.
	ErrUnavailable = errors.New("generation provider unavailable")
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 2048
)

// Request is one generation call. Context is the retrieved document block and
// is empty when retrieval found nothing usable.
type Request struct {
	Prompt  string
	History []history.Turn
	Context string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// New constructs the configured provider behind a per-call timeout.
func New(ctx context.Context, opts Options, p *persona.Persona) (Generator, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no persona", ErrUnavailable)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s needs an API key", ErrUnavailable, opts.Provider)
	}

	var (
		g   Generator
		err error
	)
	switch strings.ToLower(opts.Provider) {
	case ProviderGemini:
		g, err = NewGemini(ctx, opts, p)
	case ProviderOpenAI:
		g, err = NewOpenAI(opts, p)
	case ProviderAnthropic:
		g, err = NewAnthropic(opts, p)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrUnavailable, opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(g, opts.Timeout, opts.Logger), nil
}

type timed struct {
	inner   Generator
	timeout time.Duration
	logger  *slog.Logger
}

// WithTimeout bounds every Generate call. A non-positive timeout uses
// DefaultTimeout.
func WithTimeout(g Generator, timeout time.Duration, logger *slog.Logger) Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &timed{inner: g, timeout: timeout, logger: logger}
}

func (t *timed) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	text, err := t.inner.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	t.logger.Debug("generated answer", "grounded", req.Context != "", "elapsed", time.Since(start), "chars", len(text))
	return text, nil
}
