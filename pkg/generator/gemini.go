package generator

import (
	"context"
	"fmt"

	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/persona"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini answers through the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	persona *persona.Persona
	config  genai.GenerateContentConfig
}

func NewGemini(ctx context.Context, opts Options, p *persona.Persona) (*Gemini, error) {
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", ErrUnavailable, err)
	}
	return &Gemini{
		client:  client,
		model:   opts.Model,
		persona: p,
		config: genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.7),
			TopP:            genai.Ptr[float32](0.8),
			TopK:            genai.Ptr[float32](40),
			MaxOutputTokens: DefaultMaxTokens,
		},
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	prompt := g.persona.Build(req.Prompt, req.History, req.Context)

	contents := make([]*genai.Content, 0, len(prompt.Turns)+1)
	for _, turn := range prompt.Turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == history.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt.User, genai.RoleUser))

	config := g.config
	config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}
