// Package clarify inspects detected label text for required wine fields
// and drives the follow-up question loop when some are missing.
package clarify

import "strings"

// Field is one required label field.
type Field struct {
	Name     string
	Patterns []string // substring patterns marking the field as present
	Question string   // canonical follow-up when the field is missing
}

// fields is the fixed, ordered required-field table. Order is the order
// follow-up questions are asked in.
var fields = []Field{
	{
		Name:     "color",
		Patterns: []string{"rouge", "blanc", "rosé", "rose"},
		Question: "Quelle est la couleur du vin (rouge, blanc ou rosé) ?",
	},
	{
		Name:     "appellation",
		Patterns: []string{"appellation"},
		Question: "Quelle est l'appellation du vin ?",
	},
	{
		Name:     "alcohol-degree",
		Patterns: []string{"%", "degré", "degre"},
		Question: "Quel est le degré d'alcool du vin ?",
	},
}

// RequiredFields returns the names of the required fields, in order.
func RequiredFields() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Missing returns the canonical follow-up question for every required
// field whose pattern does not appear in the lower-cased detected text, in
// fixed field order. Pure function.
func Missing(detected string) []string {
	text := strings.ToLower(detected)
	var questions []string
	for _, f := range fields {
		present := false
		for _, p := range f.Patterns {
			if strings.Contains(text, p) {
				present = true
				break
			}
		}
		if !present {
			questions = append(questions, f.Question)
		}
	}
	return questions
}

// Phase is the orchestrator-level clarification phase.
type Phase int

const (
	NoPending Phase = iota
	AwaitingAnswers
	ReadyToFinalize
)

// State tracks one in-flight clarification loop. At most one State is
// active per session.
type State struct {
	Questions []string
	Answers   map[int]string
}

// NewState opens a clarification loop for the given follow-up questions.
func NewState(questions []string) *State {
	return &State{
		Questions: questions,
		Answers:   make(map[int]string),
	}
}

// Remaining returns the questions not yet answered, in order.
func (s *State) Remaining() []string {
	var out []string
	for i, q := range s.Questions {
		if _, ok := s.Answers[i]; !ok {
			out = append(out, q)
		}
	}
	return out
}

// Answer records the answer to question i. Out-of-range indexes are
// ignored.
func (s *State) Answer(i int, text string) {
	if i < 0 || i >= len(s.Questions) {
		return
	}
	s.Answers[i] = text
}

// Phase reports where the loop stands.
func (s *State) Phase() Phase {
	if s == nil {
		return NoPending
	}
	if len(s.Answers) >= len(s.Questions) {
		return ReadyToFinalize
	}
	return AwaitingAnswers
}

// Transcript renders the collected question/answer pairs in question
// order, for inclusion in the finalize prompt.
func (s *State) Transcript() string {
	var sb strings.Builder
	for i, q := range s.Questions {
		if a, ok := s.Answers[i]; ok {
			sb.WriteString("- ")
			sb.WriteString(q)
			sb.WriteString(" ")
			sb.WriteString(a)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
