package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/persona"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcGenerator func(ctx context.Context, req Request) (string, error)

func (f funcGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func testPersona(t *testing.T) *persona.Persona {
	t.Helper()
	p, err := persona.Default()
	require.NoError(t, err)
	return p
}

// =============================================================================
// Timeout wrapper
// =============================================================================

func TestWithTimeout_CancelsSlowCalls(t *testing.T) {
	slow := funcGenerator(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := WithTimeout(slow, 10*time.Millisecond, nil).Generate(context.Background(), Request{Prompt: "oi"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeout_EmptyResponse(t *testing.T) {
	blank := funcGenerator(func(context.Context, Request) (string, error) {
		return "  \n", nil
	})

	_, err := WithTimeout(blank, 0, nil).Generate(context.Background(), Request{Prompt: "oi"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestWithTimeout_TrimsAnswer(t *testing.T) {
	g := funcGenerator(func(context.Context, Request) (string, error) {
		return " O prazo é 30 de março. \n", nil
	})

	text, err := WithTimeout(g, time.Second, nil).Generate(context.Background(), Request{Prompt: "prazo?"})
	require.NoError(t, err)
	assert.Equal(t, "O prazo é 30 de março.", text)
}

func TestNew_Unavailable(t *testing.T) {
	p := testPersona(t)
	ctx := context.Background()

	_, err := New(ctx, Options{Provider: ProviderGemini}, p)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(ctx, Options{Provider: "llama", APIKey: "k"}, p)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(ctx, Options{Provider: ProviderOpenAI, APIKey: "k"}, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

// =============================================================================
// Providers against a local server
// =============================================================================

func TestOpenAI_Generate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"O prazo é 30 de março."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL}, testPersona(t))
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), Request{
		Prompt:  "Qual o prazo?",
		History: []history.Turn{{Role: history.RoleUser, Content: "oi"}, {Role: history.RoleAssistant, Content: "Olá!"}},
		Context: "- ID: c1\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "O prazo é 30 de março.", text)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "- ID: c1")
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "Qual o prazo?", got.Messages[3].Content)
}

func TestAnthropic_Generate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5-20251001",
			"content":[{"type":"text","text":"A biblioteca abre aos sábados."}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Options{Provider: ProviderAnthropic, APIKey: "k", BaseURL: srv.URL}, testPersona(t))
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), Request{
		Prompt:  "A biblioteca abre sábado?",
		History: []history.Turn{{Role: history.RoleAssistant, Content: "Olá!"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A biblioteca abre aos sábados.", text)

	assert.Equal(t, DefaultAnthropicModel, got.Model)
	require.Len(t, got.Messages, 1, "leading assistant turn is dropped")
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestGemini_Generate(t *testing.T) {
	var got struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		SystemInstruction *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/"+DefaultGeminiModel+":generateContent", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model",
			"parts":[{"text":"  O boleto vence no dia 10.  "}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Options{Provider: ProviderGemini, APIKey: "k", BaseURL: srv.URL + "/"}, testPersona(t))
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), Request{
		Prompt:  "Quando vence o boleto?",
		History: []history.Turn{{Role: history.RoleUser, Content: "Oi"}, {Role: history.RoleAssistant, Content: "Olá!"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "O boleto vence no dia 10.", text)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "user", got.Contents[2].Role)
	require.NotEmpty(t, got.Contents[2].Parts)
	assert.Contains(t, got.Contents[2].Parts[0].Text, "Quando vence o boleto?")
	require.NotNil(t, got.SystemInstruction)
	assert.NotEmpty(t, got.SystemInstruction.Parts)
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	g, err := NewOpenAI(Options{APIKey: "k", BaseURL: srv.URL}, testPersona(t))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), Request{Prompt: "oi"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyResponse))
}
