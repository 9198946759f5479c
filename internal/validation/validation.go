// Package validation scores generated answers. Both validators are pure and
// deterministic; their scores drive the single regeneration attempt.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rachid48133/studygenie/internal/analysis"
	"github.com/rachid48133/studygenie/internal/models"
	"github.com/rachid48133/studygenie/internal/notation"
)

const (
	IssueMissingSubQuestion = "missing_subquestion"
	IssueIncompleteSentence = "incomplete_sentence"
	IssueTooShort           = "too_short"
	IssueEmptyAnswer        = "empty_answer"
	IssueMissingFormula     = "missing_formula"
	IssueAlteredFormula     = "altered_formula"
)

const (
	completeThreshold         = 70
	notationCompleteThreshold = 50
	minAnswerTokens           = 20
	notationMinAnswerLength   = 100
)

// Completeness checks sub-question coverage, truncation and length.
func Completeness(question, answer string) models.ValidationResult {
	score := 100
	issues := []models.Issue{}
	lowerAnswer := strings.ToLower(answer)

	if analysis.HasMultipleParts(question) {
		for _, m := range analysis.SubQuestionMarkers(question) {
			if !strings.Contains(lowerAnswer, m) {
				issues = append(issues, models.Issue{
					Type:    IssueMissingSubQuestion,
					Message: fmt.Sprintf("Sous-question %s non traitée", m),
				})
				score -= 30
			}
		}
	}

	if !endsSentence(answer) {
		issues = append(issues, models.Issue{
			Type:    IssueIncompleteSentence,
			Message: "Réponse se termine abruptement",
		})
		score -= 20
	}

	if len(strings.Fields(answer)) < minAnswerTokens && !isRefusal(lowerAnswer) {
		issues = append(issues, models.Issue{
			Type:    IssueTooShort,
			Message: "Réponse trop courte",
		})
		score -= 10
	}

	score = max(score, 0)
	return models.ValidationResult{
		Score:      score,
		IsComplete: score >= completeThreshold,
		Issues:     issues,
	}
}

func endsSentence(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?', ':', ')':
		return true
	}
	return false
}

func isRefusal(lowerAnswer string) bool {
	for _, phrase := range models.RefusalPhrases {
		if strings.Contains(lowerAnswer, phrase) {
			return true
		}
	}
	return false
}

// Notation checks that the answer reuses the course formulas verbatim.
func Notation(answer string, set models.NotationSet) models.ValidationResult {
	if answer == "" {
		return models.ValidationResult{
			Score:  0,
			Issues: []models.Issue{{Type: IssueEmptyAnswer, Message: "Réponse vide"}},
		}
	}

	score := 100
	issues := []models.Issue{}

	if len(set.Formulas) > 0 && utf8.RuneCountInString(answer) > notationMinAnswerLength {
		found := false
		for _, f := range set.Formulas {
			if strings.Contains(answer, notation.LeftSide(f)) {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, models.Issue{
				Type:    IssueMissingFormula,
				Message: "Formule attendue absente de la réponse",
			})
			score -= 20
		}
	}

	compactAnswer := stripSpaces(answer)
	for _, f := range set.Formulas {
		lhs := notation.LeftSide(f)
		if !strings.Contains(answer, lhs) || strings.Contains(answer, f) {
			continue
		}
		if !strings.Contains(compactAnswer, stripSpaces(f)) {
			issues = append(issues, models.Issue{
				Type:    IssueAlteredFormula,
				Message: fmt.Sprintf("Formule modifiée ou incomplète : %s", f),
			})
			score -= 15
		}
	}

	score = max(score, 0)
	return models.ValidationResult{
		Score:      score,
		IsComplete: score >= notationCompleteThreshold,
		Issues:     issues,
	}
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
