package stats

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pennantware/warbot/pkg/questionnaire"
)

// numberPattern matches the first number on a (folded) line.
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseError reports which fields a pasted block was missing.
type ParseError struct {
	MissingLabels []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stats: paste is missing %d fields: %s",
		len(e.MissingLabels), strings.Join(e.MissingLabels, ", "))
}

// Parse extracts a complete answers map for the given kind from a pasted
// stats block. Each line is matched against the questionnaire's field
// labels; the first number on a matching line becomes that field's value.
// Longer labels win so that 盗塁死 is not swallowed by 盗塁.
// All fields must be present; otherwise a *ParseError lists what is missing.
func Parse(text string, kind questionnaire.Kind) (map[string]float64, error) {
	questions := questionnaire.QuestionsFor(kind)
	if len(questions) == 0 {
		return nil, fmt.Errorf("stats: unknown kind %q", kind)
	}

	answers := make(map[string]float64, len(questions))
	for _, line := range strings.Split(text, "\n") {
		folded := Fold(strings.TrimSpace(line))
		if folded == "" {
			continue
		}

		q, ok := matchQuestion(folded, questions)
		if !ok {
			continue
		}
		if _, dup := answers[q.Key]; dup {
			continue
		}

		num := numberPattern.FindString(folded)
		if num == "" {
			continue
		}
		v, err := ParseValue(num)
		if err != nil {
			continue
		}
		answers[q.Key] = v
	}

	var missing []string
	for _, q := range questions {
		if _, ok := answers[q.Key]; !ok {
			missing = append(missing, q.Label)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{MissingLabels: missing}
	}
	return answers, nil
}

// matchQuestion finds the question whose label (or key) appears in the line,
// preferring the longest label so overlapping labels resolve correctly.
func matchQuestion(line string, questions []questionnaire.Question) (questionnaire.Question, bool) {
	var best questionnaire.Question
	bestLen := 0
	for _, q := range questions {
		if strings.Contains(line, q.Label) && len(q.Label) > bestLen {
			best = q
			bestLen = len(q.Label)
			continue
		}
		if bestLen == 0 && strings.Contains(line, q.Key) {
			best = q
			bestLen = 1
		}
	}
	return best, bestLen > 0
}
