// Package persona describes the assistant's voice and turns a retrieval
// decision into the prompt handed to a generator.
package persona

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/perbu/campusrag/pkg/history"
	"gopkg.in/yaml.v3"
)

//go:embed persona.yaml
var defaultYAML []byte

// DefaultHistoryTurns is how many prior turns go into a prompt when the
// persona does not say.
const DefaultHistoryTurns = 10

type Messages struct {
	Greeting      string `yaml:"greeting"`
	Farewell      string `yaml:"farewell"`
	NotUnderstood string `yaml:"not_understood"`
}

// Persona is the assistant's identity and canned replies.
type Persona struct {
	Name               string   `yaml:"name"`
	Role               string   `yaml:"role"`
	Age                string   `yaml:"age"`
	Tone               string   `yaml:"tone"`
	Formality          string   `yaml:"formality"`
	Traits             []string `yaml:"traits"`
	Specialties        []string `yaml:"specialties"`
	Communication      []string `yaml:"communication"`
	Restricted         []string `yaml:"restricted"`
	Escalate           []string `yaml:"escalate"`
	GroundedGuidelines []string `yaml:"grounded_guidelines"`
	FarewellPhrases    []string `yaml:"farewell_phrases"`
	HistoryTurns       int      `yaml:"history_turns"`
	Messages           Messages `yaml:"messages"`
}

// Prompt is a provider-neutral request: system instructions, prior turns and
// the user's message.
type Prompt struct {
	System string
	Turns  []history.Turn
	User   string
}

// Default returns the embedded persona.
func Default() (*Persona, error) {
	return parse(defaultYAML)
}

// Load reads a persona from a YAML file.
func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing persona: %w", err)
	}
	if p.Name == "" {
		return nil, errors.New("persona has no name")
	}
	if p.HistoryTurns <= 0 {
		p.HistoryTurns = DefaultHistoryTurns
	}
	for i, phrase := range p.FarewellPhrases {
		p.FarewellPhrases[i] = strings.ToLower(phrase)
	}
	return &p, nil
}

// IsFarewell reports whether the message contains one of the farewell
// phrases, case-insensitively.
func (p *Persona) IsFarewell(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range p.FarewellPhrases {
		if phrase != "" && strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Build assembles the prompt for a message. A non-empty context switches the
// instructions to document-grounded answering.
func (p *Persona) Build(message string, turns []history.Turn, context string) Prompt {
	return Prompt{
		System: p.SystemPrompt(context),
		Turns:  history.Last(turns, p.HistoryTurns),
		User:   message,
	}
}

// SystemPrompt renders the persona instructions, followed by the retrieved
// context and answering guidelines when context is present.
func (p *Persona) SystemPrompt(context string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Você é %s, %s", p.Name, p.Role)
	if p.Age != "" {
		fmt.Fprintf(&b, " de %s", p.Age)
	}
	b.WriteString(".\n\n")

	b.WriteString("Suas características de personalidade são:\n")
	fmt.Fprintf(&b, "- Tom de voz: %s\n", p.Tone)
	fmt.Fprintf(&b, "- Nível de formalidade: %s\n", p.Formality)
	fmt.Fprintf(&b, "- Traços principais: %s\n\n", strings.Join(p.Traits, ", "))

	if len(p.Specialties) > 0 {
		fmt.Fprintf(&b, "Suas especialidades incluem: %s.\n\n", strings.Join(p.Specialties, ", "))
	}

	if len(p.Communication) > 0 {
		b.WriteString("Diretrizes de comunicação:\n")
		writeList(&b, p.Communication, "- ")
		b.WriteString("\n")
	}

	if len(p.Restricted) > 0 {
		fmt.Fprintf(&b, "Se a pergunta envolver temas sensíveis ou restritos como %s, informe que não pode fornecer essas informações por questões de segurança e privacidade.\n\n",
			strings.Join(p.Restricted, ", "))
	}
	if len(p.Escalate) > 0 {
		fmt.Fprintf(&b, "Se a situação exigir encaminhamento, como em casos de %s, sugira o contato com o setor apropriado.\n",
			strings.Join(p.Escalate, ", "))
	}

	if context == "" {
		return b.String()
	}

	b.WriteString("\nVOCÊ DEVE RESPONDER ÀS PERGUNTAS SOMENTE COM BASE NAS INFORMAÇÕES RELEVANTES DOS DOCUMENTOS ABAIXO. ")
	b.WriteString("NÃO INVENTE INFORMAÇÕES NEM USE CONHECIMENTO PRÉVIO. SE A RESPOSTA NÃO PUDER SER FORMULADA A PARTIR DO CONTEXTO, INDIQUE CLARAMENTE QUE A INFORMAÇÃO NÃO FOI ENCONTRADA.\n\n")
	b.WriteString("INFORMAÇÕES RELEVANTES DOS DOCUMENTOS:\n")
	b.WriteString(context)

	if len(p.GroundedGuidelines) > 0 {
		b.WriteString("\nDIRETRIZES ADICIONAIS DE RESPOSTA:\n")
		for i, g := range p.GroundedGuidelines {
			fmt.Fprintf(&b, "%d. %s\n", i+1, g)
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, items []string, prefix string) {
	for _, item := range items {
		b.WriteString(prefix)
		b.WriteString(item)
		b.WriteString("\n")
	}
}
