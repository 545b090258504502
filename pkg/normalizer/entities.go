package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
)

// Entity is a named-entity span copied verbatim from the source text.
type Entity struct {
	Text  string
	Start int
	End   int
}

// entityConnectors may appear inside a multi-word proper name
// ("Universidade de São Paulo") but never start or end one.
var entityConnectors = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true,
}

// Entities finds proper-noun spans: runs of capitalized words, and
// all-caps acronyms. A lone capitalized word that opens a sentence is
// ordinary capitalization and is not reported.
func (n *Normalizer) Entities(text string) []Entity {
	tokens := n.tokenizer.Tokenize([]byte(text))

	var (
		entities []Entity
		span     []*analysis.Token
		pending  []*analysis.Token
	)

	flush := func() {
		if len(span) > 0 {
			if ent, ok := buildEntity(text, span); ok {
				entities = append(entities, ent)
			}
		}
		span = span[:0]
		pending = pending[:0]
	}

	for i, tok := range tokens {
		word := string(tok.Term)
		var gap string
		if i > 0 {
			gap = text[tokens[i-1].End:tok.Start]
		}

		// Anything but plain whitespace between words breaks the span.
		if len(span) > 0 && strings.TrimSpace(gap) != "" {
			flush()
		}

		switch {
		case isCapitalized(word):
			span = append(span, pending...)
			pending = pending[:0]
			span = append(span, tok)
		case len(span) > 0 && entityConnectors[word]:
			pending = append(pending, tok)
		default:
			flush()
		}
	}
	flush()

	return entities
}

func buildEntity(text string, span []*analysis.Token) (Entity, bool) {
	first := span[0]
	if len(span) == 1 && !isAcronym(string(first.Term)) && startsSentence(text, first.Start) {
		return Entity{}, false
	}
	last := span[len(span)-1]
	return Entity{
		Text:  text[first.Start:last.End],
		Start: first.Start,
		End:   last.End,
	}, true
}

func startsSentence(text string, offset int) bool {
	before := strings.TrimRightFunc(text[:offset], unicode.IsSpace)
	if before == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(before)
	return r == '.' || r == '!' || r == '?' || r == ':' || strings.Contains(text[len(before):offset], "\n")
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

func isAcronym(word string) bool {
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	for _, r := range word {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
