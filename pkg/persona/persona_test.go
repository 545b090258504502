package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/perbu/campusrag/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPersona(t *testing.T) *Persona {
	t.Helper()
	p, err := Default()
	require.NoError(t, err)
	return p
}

func TestDefault(t *testing.T) {
	p := defaultPersona(t)

	assert.Equal(t, "Sela", p.Name)
	assert.Equal(t, 10, p.HistoryTurns)
	assert.Contains(t, p.Messages.Greeting, "Sela")
	assert.NotEmpty(t, p.Messages.Farewell)
	assert.NotEmpty(t, p.Messages.NotUnderstood)
}

func TestIsFarewell(t *testing.T) {
	p := defaultPersona(t)

	for _, msg := range []string{"Tchau!", "ok, até logo", "Até mais, obrigado", "adeus"} {
		assert.True(t, p.IsFarewell(msg), msg)
	}
	for _, msg := range []string{"qual o prazo de matrícula?", "até quando pago o boleto?"} {
		assert.False(t, p.IsFarewell(msg), msg)
	}
}

func TestBuild_WithoutContext(t *testing.T) {
	p := defaultPersona(t)

	prompt := p.Build("Qual o prazo?", nil, "")

	assert.Equal(t, "Qual o prazo?", prompt.User)
	assert.Contains(t, prompt.System, "Você é Sela")
	assert.NotContains(t, prompt.System, "INFORMAÇÕES RELEVANTES DOS DOCUMENTOS")
	assert.Empty(t, prompt.Turns)
}

func TestBuild_WithContextAndHistory(t *testing.T) {
	p := defaultPersona(t)

	var turns []history.Turn
	for i := range 14 {
		turns = append(turns, history.Turn{Role: history.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	context := "Baseado nas seguintes informações dos nossos documentos:\n\n- ID: c1\n"

	prompt := p.Build("Qual o prazo?", turns, context)

	assert.Contains(t, prompt.System, "INFORMAÇÕES RELEVANTES DOS DOCUMENTOS:\n"+context)
	assert.Contains(t, prompt.System, "DIRETRIZES ADICIONAIS DE RESPOSTA:\n1. ")
	require.Len(t, prompt.Turns, 10)
	assert.Equal(t, "m4", prompt.Turns[0].Content)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Lia
role: assistente da biblioteca
farewell_phrases: [Falou]
messages:
  greeting: Oi, eu sou a Lia.
`), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Lia", p.Name)
	assert.Equal(t, DefaultHistoryTurns, p.HistoryTurns)
	assert.True(t, p.IsFarewell("falou, valeu"))
	assert.False(t, p.IsFarewell("tchau"))

	require.NoError(t, os.WriteFile(path, []byte("role: sem nome\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
