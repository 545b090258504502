// Package normalizer turns raw Portuguese text into the canonical token form
// used both when building the chunk index and when querying it.
package normalizer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/pt"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/analysis/tokenmap"
	"github.com/blevesearch/bleve/v2/registry"
	"gopkg.in/yaml.v3"
)

//go:embed lemmas.yaml
var defaultLemmasYAML []byte

// maxLemmaChain bounds lemma resolution so a cyclic table cannot loop forever.
const maxLemmaChain = 8

const (
	stopMapName    = "campusrag_stop_pt"
	stopFilterName = "campusrag_stop_pt"
)

// extraStopWords are frequent Portuguese function words and auxiliary verbs
// missing from the Snowball list that bleve ships.
var extraStopWords = []string{
	"é", "ser", "estar", "ter", "haver",
	"sobre", "onde", "cada", "ainda", "aqui", "ali", "lá", "pois", "porque",
	"então", "tão", "todo", "toda", "todos", "todas", "tudo",
	"outro", "outra", "outros", "outras", "vai", "vão",
}

// Normalizer cleans text into space-joined lemmas plus the named-entity spans
// found in the original text. A single instance must be shared between index
// build and query time.
type Normalizer struct {
	tokenizer analysis.Tokenizer
	analyzer  *analysis.DefaultAnalyzer
	stopWords analysis.TokenMap
	lemmas    map[string]string
}

// New builds a Normalizer over the given lemma table. A nil table uses the
// embedded default.
func New(lemmas map[string]string) (*Normalizer, error) {
	if lemmas == nil {
		var err error
		lemmas, err = parseLemmas(defaultLemmasYAML)
		if err != nil {
			return nil, fmt.Errorf("default lemmas: %w", err)
		}
	}

	cache := registry.NewCache()
	tokenizer, err := cache.TokenizerNamed(unicodetok.Name)
	if err != nil {
		return nil, fmt.Errorf("tokenizer %s: %w", unicodetok.Name, err)
	}
	lower, err := cache.TokenFilterNamed(lowercase.Name)
	if err != nil {
		return nil, fmt.Errorf("token filter %s: %w", lowercase.Name, err)
	}
	stopWords, stopFilter, err := defineStopFilter(cache)
	if err != nil {
		return nil, err
	}

	resolved := resolveLemmas(lemmas)

	// Stop words are removed again after lemmatization so that a lemma which
	// is itself a stop word never survives; this keeps Normalize idempotent.
	return &Normalizer{
		tokenizer: tokenizer,
		analyzer: &analysis.DefaultAnalyzer{
			Tokenizer: tokenizer,
			TokenFilters: []analysis.TokenFilter{
				lower,
				stopFilter,
				&lemmaFilter{lemmas: resolved},
				stopFilter,
			},
		},
		stopWords: stopWords,
		lemmas:    resolved,
	}, nil
}

// defineStopFilter registers the bleve Portuguese stop list extended with
// extraStopWords and returns the map with a filter built on it. Normalize
// and IsStopWord share the map.
func defineStopFilter(cache *registry.Cache) (analysis.TokenMap, analysis.TokenFilter, error) {
	base, err := cache.TokenMapNamed(pt.StopName)
	if err != nil {
		return nil, nil, fmt.Errorf("token map %s: %w", pt.StopName, err)
	}

	tokens := make([]interface{}, 0, len(base)+len(extraStopWords))
	for word := range base {
		tokens = append(tokens, word)
	}
	for _, word := range extraStopWords {
		tokens = append(tokens, word)
	}

	stopWords, err := cache.DefineTokenMap(stopMapName, map[string]interface{}{
		"type":   tokenmap.Name,
		"tokens": tokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("token map %s: %w", stopMapName, err)
	}
	filter, err := cache.DefineTokenFilter(stopFilterName, map[string]interface{}{
		"type":           stop.Name,
		"stop_token_map": stopMapName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("token filter %s: %w", stopFilterName, err)
	}
	return stopWords, filter, nil
}

// LoadLemmas reads a lemma table from a YAML file with a top-level
// "lemmas" mapping.
func LoadLemmas(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lemmas %s: %w", path, err)
	}
	return parseLemmas(data)
}

func parseLemmas(data []byte) (map[string]string, error) {
	var doc struct {
		Lemmas map[string]string `yaml:"lemmas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding lemmas: %w", err)
	}
	if doc.Lemmas == nil {
		doc.Lemmas = map[string]string{}
	}
	return doc.Lemmas, nil
}

// resolveLemmas lowercases the table and follows chains so that every value
// is a fixed point: lemma(lemma(x)) == lemma(x).
func resolveLemmas(in map[string]string) map[string]string {
	lowered := make(map[string]string, len(in))
	for k, v := range in {
		lowered[strings.ToLower(k)] = strings.ToLower(v)
	}

	out := make(map[string]string, len(lowered))
	for k, v := range lowered {
		for i := 0; i < maxLemmaChain; i++ {
			next, ok := lowered[v]
			if !ok || next == v {
				break
			}
			v = next
		}
		if k != v {
			out[k] = v
		}
	}
	return out
}

// Normalize tokenizes text, drops stop words and punctuation, reduces the
// remaining tokens to their lemmas and appends any named-entity spans
// verbatim. Empty or whitespace-only input yields "".
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	stream := n.analyzer.Analyze([]byte(text))
	parts := make([]string, 0, len(stream))
	for _, tok := range stream {
		parts = append(parts, string(tok.Term))
	}

	for _, ent := range n.Entities(text) {
		parts = append(parts, ent.Text)
	}

	return strings.Join(parts, " ")
}

// Lemma returns the lemma of a single lowercase word.
func (n *Normalizer) Lemma(word string) string {
	if l, ok := n.lemmas[word]; ok {
		return l
	}
	return word
}

// IsStopWord reports whether the lowercase word is a Portuguese stop word.
func (n *Normalizer) IsStopWord(word string) bool {
	return n.stopWords[word]
}

// lemmaFilter rewrites each token term to its lemma.
type lemmaFilter struct {
	lemmas map[string]string
}

func (f *lemmaFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, tok := range input {
		if lemma, ok := f.lemmas[string(tok.Term)]; ok {
			tok.Term = []byte(lemma)
		}
	}
	return input
}
