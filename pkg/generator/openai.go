package generator

import (
	"context"
	"fmt"

	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/persona"
	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI answers through the chat completions API.
type OpenAI struct {
	client  *openai.Client
	model   string
	persona *persona.Persona
}

func NewOpenAI(opts Options, p *persona.Persona) (*OpenAI, error) {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(config),
		model:   opts.Model,
		persona: p,
	}, nil
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	prompt := o.persona.Build(req.Prompt, req.History, req.Context)

	messages := make([]openai.ChatCompletionMessage, 0, len(prompt.Turns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt.System,
	})
	for _, turn := range prompt.Turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == history.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: 0.7,
		TopP:        0.8,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
