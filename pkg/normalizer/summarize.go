package normalizer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	summarySentences   = 5
	degenerateCutoff   = 500
	edgeSentenceShare  = 0.2
	edgeSentenceBoost  = 1.5
	minKeywordRunes    = 3
	entityWeightFactor = 2
)

// Summarize returns text unchanged when it has at most maxTokens words.
// Longer text is reduced to its five highest-scoring sentences, kept in
// document order. Sentences are scored by the frequency of their content
// lemmas divided by their length, with a boost for the opening and closing
// fifth of the document. Text without any sentence boundary is cut to its
// first 500 characters.
func (n *Normalizer) Summarize(text string, maxTokens int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if len(strings.Fields(text)) <= maxTokens {
		return text
	}

	sentences, found := splitSentences(text)
	if !found || len(sentences) == 0 {
		return truncateRunes(text, degenerateCutoff)
	}

	freq := n.keywordFrequencies(text)

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	total := float64(len(sentences))
	for i, sent := range sentences {
		var sum float64
		words := n.tokenizer.Tokenize([]byte(sent))
		for _, tok := range words {
			sum += freq[n.Lemma(strings.ToLower(string(tok.Term)))]
		}
		if float64(i) < total*edgeSentenceShare || float64(i) > total*(1-edgeSentenceShare) {
			sum *= edgeSentenceBoost
		}
		length := len(words)
		if length < 1 {
			length = 1
		}
		scores[i] = scored{idx: i, score: sum / float64(length)}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})
	if len(scores) > summarySentences {
		scores = scores[:summarySentences]
	}
	sort.Slice(scores, func(a, b int) bool {
		return scores[a].idx < scores[b].idx
	})

	selected := make([]string, len(scores))
	for i, s := range scores {
		selected[i] = sentences[s.idx]
	}
	return strings.Join(selected, " ")
}

// keywordFrequencies counts content lemmas longer than two characters and
// doubles the weight of lemmas that belong to a named entity.
func (n *Normalizer) keywordFrequencies(text string) map[string]float64 {
	freq := make(map[string]float64)
	for _, tok := range n.tokenizer.Tokenize([]byte(text)) {
		word := strings.ToLower(string(tok.Term))
		if n.IsStopWord(word) || utf8.RuneCountInString(word) < minKeywordRunes {
			continue
		}
		freq[n.Lemma(word)]++
	}

	for _, ent := range n.Entities(text) {
		for _, tok := range n.tokenizer.Tokenize([]byte(ent.Text)) {
			lemma := n.Lemma(strings.ToLower(string(tok.Term)))
			if _, ok := freq[lemma]; ok {
				freq[lemma] *= entityWeightFactor
			}
		}
	}
	return freq
}

// splitSentences breaks text at sentence-final punctuation followed by
// whitespace (or end of text) and at line breaks. The boolean reports
// whether any boundary was seen at all.
func splitSentences(text string) ([]string, bool) {
	var (
		sentences []string
		found     bool
		start     int
	)

	emit := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i, r := range text {
		switch r {
		case '\n':
			found = true
			emit(i)
		case '.', '!', '?':
			next := i + utf8.RuneLen(r)
			if next >= len(text) {
				found = true
				continue
			}
			nr, _ := utf8.DecodeRuneInString(text[next:])
			if unicode.IsSpace(nr) {
				found = true
				emit(next)
			}
		}
	}
	emit(len(text))

	return sentences, found
}

func truncateRunes(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
