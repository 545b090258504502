package rag

import (
	"fmt"
	"strings"

	"github.com/perbu/campusrag/pkg/index"
)

const (
	contextHeader = "Baseado nas seguintes informações dos nossos documentos:\n\n"
	subTopicKey   = "sub_assunto"
	noSubTopic    = "N/A"
)

// BuildContext renders search results, best first, as the document block
// handed to the generator.
func BuildContext(results []index.SearchResult) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	for _, r := range results {
		sub := r.Metadata[subTopicKey]
		if sub == "" {
			sub = noSubTopic
		}
		fmt.Fprintf(&b, "- ID: %s\n", r.ChunkID)
		fmt.Fprintf(&b, "  Subtópico: %s\n", sub)
		fmt.Fprintf(&b, "  Texto: %s\n", r.Text)
		fmt.Fprintf(&b, "  (Fonte: %s)\n\n", r.ChunkID)
	}
	return b.String()
}
