package normalizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(nil)
	require.NoError(t, err)
	return n
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(s) {
		set[f] = true
	}
	return set
}

func TestNormalize_Empty(t *testing.T) {
	n := newTestNormalizer(t)

	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("   \n\t "))
}

func TestNormalize_DropsStopWordsAndPunctuation(t *testing.T) {
	n := newTestNormalizer(t)

	got := n.Normalize("prazo de matrícula é até 30 de março!")

	assert.Equal(t, "prazo matrícula 30 março", got)
}

func TestNormalize_DropsAuxiliaryVerbs(t *testing.T) {
	n := newTestNormalizer(t)

	assert.Equal(t, "biblioteca aberta", n.Normalize("a biblioteca é aberta"))
	assert.Equal(t, "secretaria", n.Normalize("onde está a secretaria?"))

	for _, w := range []string{"é", "ser", "são", "foi", "está", "de"} {
		assert.True(t, n.IsStopWord(w), w)
	}
	assert.False(t, n.IsStopWord("matrícula"))
}

func TestNormalize_Lemmatizes(t *testing.T) {
	n := newTestNormalizer(t)

	got := n.Normalize("quando termina a matrícula?")

	assert.Equal(t, "terminar matrícula", got)
}

func TestNormalize_AppendsEntities(t *testing.T) {
	n := newTestNormalizer(t)

	got := n.Normalize("Quero saber sobre o FIES na Belas Artes")

	assert.True(t, strings.HasSuffix(got, "FIES Belas Artes"), "entities appended verbatim, got %q", got)
	assert.Contains(t, tokenSet(got), "fies")
	assert.Contains(t, tokenSet(got), "querer")
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"quando termina a matrícula?",
		"preciso pagar as mensalidades atrasadas",
		"",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}

	// With entities the verbatim spans are re-appended, but the content is
	// unchanged.
	withEntity := n.Normalize("tenho dúvidas sobre o TCC da Belas Artes")
	assert.Equal(t, tokenSet(withEntity), tokenSet(n.Normalize(withEntity)))
}

func TestEntities(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"sentence start is not an entity", "Quando abre a secretaria?", nil},
		{"acronym at start", "FIES tem prazo?", []string{"FIES"}},
		{"multi word name with connector", "estudo na Universidade de São Paulo hoje", []string{"Universidade de São Paulo"}},
		{"punctuation breaks span", "falei com Maria, Joana e Pedro", []string{"Maria", "Joana", "Pedro"}},
		{"trailing connector dropped", "sou da Belas Artes de manhã", []string{"Belas Artes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range n.Entities(tt.text) {
				got = append(got, e.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveLemmas_Chains(t *testing.T) {
	got := resolveLemmas(map[string]string{
		"Alunas": "aluna",
		"aluna":  "aluno",
		"aluno":  "aluno",
	})

	assert.Equal(t, "aluno", got["alunas"])
	assert.Equal(t, "aluno", got["aluna"])
	_, selfMapped := got["aluno"]
	assert.False(t, selfMapped)
}

func TestLoadLemmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemmas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lemmas:\n  boletos: boleto\n"), 0o644))

	lemmas, err := LoadLemmas(path)
	require.NoError(t, err)

	n, err := New(lemmas)
	require.NoError(t, err)
	assert.Equal(t, "boleto", n.Normalize("boletos"))
	// The default table is replaced, not merged.
	assert.Equal(t, "matrículas", n.Normalize("matrículas"))
}
