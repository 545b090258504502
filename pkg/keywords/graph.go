// Package keywords expands user queries with related academic vocabulary.
package keywords

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed synonyms.yaml
var defaultSynonymsYAML []byte

// Entry maps a canonical term to its related vocabulary.
type Entry struct {
	Term    string   `yaml:"term"`
	Related []string `yaml:"related"`
}

type cluster struct {
	term         string
	termLower    string
	related      []string
	relatedLower []string
}

// Graph is an immutable synonym/keyword table queried in both directions:
// a canonical term pulls in its related terms, and a related term pulls in
// its canonical term plus the rest of its cluster. It is safe for
// concurrent use.
type Graph struct {
	clusters []cluster
}

// New builds a Graph. Empty terms are ignored and related terms are
// deduplicated keeping their first occurrence.
func New(entries []Entry) *Graph {
	g := &Graph{clusters: make([]cluster, 0, len(entries))}
	for _, e := range entries {
		term := strings.TrimSpace(e.Term)
		if term == "" {
			continue
		}
		c := cluster{term: term, termLower: strings.ToLower(term)}
		seen := make(map[string]bool, len(e.Related))
		for _, r := range e.Related {
			r = strings.TrimSpace(r)
			lower := strings.ToLower(r)
			if r == "" || seen[lower] {
				continue
			}
			seen[lower] = true
			c.related = append(c.related, r)
			c.relatedLower = append(c.relatedLower, lower)
		}
		g.clusters = append(g.clusters, c)
	}
	return g
}

// Default returns the graph built from the embedded vocabulary.
func Default() (*Graph, error) {
	return parse(defaultSynonymsYAML)
}

// Load reads a graph from a YAML file with a top-level "synonyms" list.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading synonyms %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Graph, error) {
	var doc struct {
		Synonyms []Entry `yaml:"synonyms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding synonyms: %w", err)
	}
	return New(doc.Synonyms), nil
}

// Len returns the number of canonical terms.
func (g *Graph) Len() int {
	return len(g.clusters)
}

// RelatedTerms returns the deduplicated vocabulary related to query, sorted.
func (g *Graph) RelatedTerms(query string) []string {
	q := strings.ToLower(query)
	set := make(map[string]struct{})

	for _, c := range g.clusters {
		if strings.Contains(q, c.termLower) {
			for _, r := range c.related {
				set[r] = struct{}{}
			}
		}

		for i, rl := range c.relatedLower {
			if !strings.Contains(q, rl) {
				continue
			}
			set[c.term] = struct{}{}
			for j, r := range c.related {
				if j != i {
					set[r] = struct{}{}
				}
			}
			break
		}
	}

	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Expand appends to query the related terms not already present in it.
// The query is returned unchanged when nothing new is found.
func (g *Graph) Expand(query string) string {
	q := strings.ToLower(query)

	var extra []string
	for _, t := range g.RelatedTerms(query) {
		if !strings.Contains(q, strings.ToLower(t)) {
			extra = append(extra, t)
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
