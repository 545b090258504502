package normalizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_ShortTextUnchanged(t *testing.T) {
	n := newTestNormalizer(t)

	text := "Qual o prazo da rematrícula?"
	assert.Equal(t, text, n.Summarize(text, 10))
	assert.Equal(t, "", n.Summarize("  ", 10))
}

func TestSummarize_NoSentenceBoundary(t *testing.T) {
	n := newTestNormalizer(t)

	text := strings.TrimSpace(strings.Repeat("mensalidade ", 200))
	got := n.Summarize(text, 100)

	assert.Equal(t, 500, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(text, got))
}

func TestSummarize_SelectsFiveInDocumentOrder(t *testing.T) {
	n := newTestNormalizer(t)

	sentences := []string{
		"A matrícula do curso de design abre em fevereiro.",
		"O estacionamento fica ao lado do prédio principal.",
		"A cantina funciona das sete às vinte e duas horas.",
		"Os documentos da matrícula devem ser entregues na secretaria.",
		"O prazo da matrícula termina em março.",
		"A biblioteca empresta livros por quinze dias.",
		"O campus tem wifi gratuito.",
		"Dúvidas sobre a matrícula devem ir para a secretaria.",
	}
	text := strings.Join(sentences, " ")

	got := n.Summarize(text, 10)

	last := -1
	count := 0
	for i, s := range sentences {
		if strings.Contains(got, s) {
			require.Greater(t, i, last, "sentences must keep document order")
			last = i
			count++
		}
	}
	assert.Equal(t, 5, count)
	// Lead sentence is boosted and carries the dominant keyword.
	assert.Contains(t, got, sentences[0])
}

func TestSplitSentences(t *testing.T) {
	got, found := splitSentences("Primeira frase. Segunda frase!\nTerceira? fim")
	assert.True(t, found)
	assert.Equal(t, []string{"Primeira frase.", "Segunda frase!", "Terceira?", "fim"}, got)

	got, found = splitSentences("versão 2.0 sem ponto final")
	assert.False(t, found)
	assert.Equal(t, []string{"versão 2.0 sem ponto final"}, got)
}
