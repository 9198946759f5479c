// Package analysis classifies questions and mines methodology hints from
// retrieved course context. Every function is pure.
package analysis

import (
	"regexp"
	"strings"

	"github.com/rachid48133/studygenie/internal/models"
)

const (
	maxMethodologies = 5
	maxFormulas      = 10
)

var (
	methodologyRes = compileAll(models.MethodologyPatterns)
	formulaHintRes = compileAll(models.FormulaHintPatterns)
	subQuestionRe  = regexp.MustCompile(models.SubQuestionRegex)
	exerciseRes    = compileExercisePatterns()
)

type exerciseMatcher struct {
	typ models.ExerciseType
	res []*regexp.Regexp
}

func compileAll(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

func compileExercisePatterns() []exerciseMatcher {
	out := make([]exerciseMatcher, len(models.ExercisePatterns))
	for i, ep := range models.ExercisePatterns {
		out[i] = exerciseMatcher{typ: ep.Type, res: compileAll(ep.Patterns)}
	}
	return out
}

// Methodologies holds the method blocks and formula hints found in a text.
type Methodologies struct {
	Methodologies  []string `json:"methodologies"`
	Formulas       []string `json:"formulas"`
	HasMethodology bool     `json:"has_methodology"`
}

// ExtractMethodologies finds "method: <list>" style blocks and formula-like
// fragments. Results are capped and kept in pattern then text order.
func ExtractMethodologies(text string) Methodologies {
	var m Methodologies
	for _, re := range methodologyRes {
		for _, match := range re.FindAllString(text, -1) {
			m.Methodologies = append(m.Methodologies, strings.TrimSpace(match))
		}
	}
	m.HasMethodology = len(m.Methodologies) > 0
	if len(m.Methodologies) > maxMethodologies {
		m.Methodologies = m.Methodologies[:maxMethodologies]
	}

	for _, re := range formulaHintRes {
		for _, match := range re.FindAllString(text, -1) {
			m.Formulas = append(m.Formulas, strings.TrimSpace(match))
		}
	}
	if len(m.Formulas) > maxFormulas {
		m.Formulas = m.Formulas[:maxFormulas]
	}
	return m
}

// DetectExerciseType returns the first exercise type whose keywords appear
// in the question or context, or ExerciseGeneral.
func DetectExerciseType(question, context string) models.ExerciseType {
	combined := strings.ToLower(question + " " + context)
	for _, em := range exerciseRes {
		for _, re := range em.res {
			if re.MatchString(combined) {
				return em.typ
			}
		}
	}
	return models.ExerciseGeneral
}

// SubQuestionMarkers returns the distinct "<letter>)" markers of the
// lowercased question, in order of appearance.
func SubQuestionMarkers(question string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range subQuestionRe.FindAllString(strings.ToLower(question), -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// HasMultipleParts reports whether the question has at least two lettered parts.
func HasMultipleParts(question string) bool {
	return len(SubQuestionMarkers(question)) > 1
}
