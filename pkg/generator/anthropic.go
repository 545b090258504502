package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/persona"
)

const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// Anthropic answers through the Messages API.
type Anthropic struct {
	client  *anthropic.Client
	model   string
	persona *persona.Persona
}

func NewAnthropic(opts Options, p *persona.Persona) (*Anthropic, error) {
	if opts.Model == "" {
		opts.Model = DefaultAnthropicModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(reqOpts...)
	return &Anthropic{
		client:  &client,
		model:   opts.Model,
		persona: p,
	}, nil
}

func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	prompt := a.persona.Build(req.Prompt, req.History, req.Context)

	messages := make([]anthropic.MessageParam, 0, len(prompt.Turns)+1)
	for _, turn := range prompt.Turns {
		// The conversation must open with a user turn.
		if len(messages) == 0 && turn.Role == history.RoleAssistant {
			continue
		}
		if turn.Role == history.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)))

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   DefaultMaxTokens,
		System:      []anthropic.TextBlockParam{{Text: prompt.System}},
		Messages:    messages,
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if t, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String(), nil
}
