// Package prompt builds the grounded system and user prompts sent to the model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/rachid48133/studygenie/internal/models"
)

const (
	maxMethodologyHints = 2
	maxFormulaHints     = 5
)

// Lang returns the supported output language for lang, defaulting to French.
func Lang(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), "en") {
		return "en"
	}
	return models.DefaultLanguage
}

// NoData returns the fixed sentence used when the context lacks the answer.
func NoData(lang string) string {
	if Lang(lang) == "en" {
		return NoDataEN
	}
	return NoDataFR
}

// OutOfScope returns the fixed sentence used for questions unrelated to topic.
func OutOfScope(topic, lang string) string {
	if Lang(lang) == "en" {
		return fmt.Sprintf(OutOfScopeEN, topic)
	}
	return fmt.Sprintf(OutOfScopeFR, topic)
}

// System returns the system prompt scoped to the course topic, including the
// per-request rules.
func System(topic, lang string) string {
	if Lang(lang) == "en" {
		return fmt.Sprintf(systemEN, topic, NoData(lang), OutOfScope(topic, lang)) + requestRulesEN
	}
	return fmt.Sprintf(systemFR, topic, NoData(lang), OutOfScope(topic, lang)) + requestRulesFR
}

// Input carries everything the user prompt embeds.
type Input struct {
	Context          string
	Methodologies    []string
	Formulas         []string
	NotationFragment string
	Question         string
	SubQuestions     []string // set only for multi-part questions
	Lang             string
}

// User renders the user prompt.
func User(in Input) string {
	txt := userTexts[Lang(in.Lang)]

	var b strings.Builder
	b.WriteString(txt.context + "\n")
	b.WriteString(in.Context + "\n")

	if len(in.Methodologies) > 0 {
		b.WriteString("\n\n" + txt.methodology + "\n")
		for _, m := range in.Methodologies[:min(maxMethodologyHints, len(in.Methodologies))] {
			b.WriteString(m + "\n")
		}
	}
	if len(in.Formulas) > 0 {
		b.WriteString("\n\n" + txt.formulas + "\n")
		for _, f := range in.Formulas[:min(maxFormulaHints, len(in.Formulas))] {
			b.WriteString("• " + f + "\n")
		}
	}
	if in.NotationFragment != "" {
		b.WriteString(in.NotationFragment + "\n")
	}

	b.WriteString("\n" + txt.question + "\n")
	b.WriteString(in.Question + "\n")
	if len(in.SubQuestions) > 0 {
		b.WriteString("\n" + fmt.Sprintf(txt.multiPart, strings.Join(in.SubQuestions, ", ")) + "\n")
	}
	b.WriteString("\n" + txt.answer)
	return b.String()
}

// Retry appends the corrective instruction naming issue to a user prompt.
func Retry(user, lang, issue string) string {
	if issue == "" {
		issue = "N/A"
	}
	return user + "\n\n" + fmt.Sprintf(userTexts[Lang(lang)].retry, issue)
}

// Context joins retrieved chunks, best match first, each under its source label.
func Context(chunks []models.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Source - %s]\n%s", c.Location, c.Text)
	}
	return strings.Join(parts, models.ContextSeparator)
}

// PlainContext joins chunk texts without labels, for pattern analysis.
func PlainContext(chunks []models.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}
