// Package notation mines formulas, variables and units from retrieved course
// context and keeps generated answers faithful to them.
package notation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rachid48133/studygenie/internal/models"
)

const (
	maxFormulas  = 10
	maxVariables = 20
	maxUnits     = 10

	promptFormulas  = 5
	promptVariables = 10
	promptUnits     = 5
)

var (
	formulaRe = regexp.MustCompile(models.NotationFormulaRegex)
	unitRe    = regexp.MustCompile(models.NotationUnitRegex)
	latexRe   = regexp.MustCompile(`\\([A-Za-z]+)`)

	spacedStarRe = regexp.MustCompile(`([\p{L}\p{N})\]]) \* ([\p{L}\p{N}(\[])`)
	tightStarRe  = regexp.MustCompile(`([\p{L}\p{N})\]])\*([\p{L}\p{N}(\[])`)
)

// latexSymbols maps LaTeX command names to their Unicode rendering.
var latexSymbols = map[string]string{
	"times":  "×",
	"cdot":   "·",
	"le":     "≤",
	"leq":    "≤",
	"ge":     "≥",
	"geq":    "≥",
	"neq":    "≠",
	"approx": "≈",
	"sqrt":   "√",
	"pi":     "π",
	"Omega":  "Ω",
}

// Extract returns the notations found in context, in order of first appearance.
func Extract(context string) models.NotationSet {
	var set models.NotationSet
	if context == "" {
		return set
	}

	seen := map[string]bool{}
	for _, f := range formulaRe.FindAllString(context, -1) {
		f = strings.TrimSpace(f)
		if seen[f] {
			continue
		}
		seen[f] = true
		set.Formulas = append(set.Formulas, f)
		if len(set.Formulas) == maxFormulas {
			break
		}
	}

	set.Variables = isolatedCapitals(context, maxVariables)

	seen = map[string]bool{}
	for _, m := range unitRe.FindAllStringSubmatch(context, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		set.Units = append(set.Units, m[1])
		if len(set.Units) == maxUnits {
			break
		}
	}
	return set
}

// isolatedCapitals finds single ASCII capitals not touching another word
// character, with Unicode letters counted as word characters.
func isolatedCapitals(text string, limit int) []string {
	var out []string
	seen := map[rune]bool{}
	prev := rune(-1)
	for i, r := range text {
		if r >= 'A' && r <= 'Z' && !isWordRune(prev) {
			next, _ := utf8.DecodeRuneInString(text[i+utf8.RuneLen(r):])
			if !isWordRune(next) && !seen[r] {
				seen[r] = true
				out = append(out, string(r))
				if len(out) == limit {
					break
				}
			}
		}
		prev = r
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// LeftSide returns the trimmed text before the first "=" of a formula.
func LeftSide(formula string) string {
	lhs, _, _ := strings.Cut(formula, "=")
	return strings.TrimSpace(lhs)
}

type fragmentText struct {
	header, formulas, variables, units, warning string
}

var fragments = map[string]fragmentText{
	"fr": {
		header:    "📝 NOTATIONS IMPORTANTES DU COURS :",
		formulas:  "Formules exactes :",
		variables: "Variables utilisées : %s",
		units:     "Unités : %s",
		warning:   "⚠️ IMPORTANT : Utilise STRICTEMENT ces notations. Aucune équivalence n'est autorisée.",
	},
	"en": {
		header:    "📝 IMPORTANT COURSE NOTATIONS:",
		formulas:  "Exact formulas:",
		variables: "Variables used: %s",
		units:     "Units: %s",
		warning:   "⚠️ IMPORTANT: Use these notations STRICTLY. No equivalent forms are allowed.",
	},
}

// BuildPromptFragment renders the notations of context as a prompt block.
// Formulas whose left side appears in the question come first.
// It returns "" when context has no notation.
func BuildPromptFragment(context, question, lang string) string {
	set := Extract(context)
	if set.Empty() {
		return ""
	}
	txt, ok := fragments[lang]
	if !ok {
		txt = fragments[models.DefaultLanguage]
	}

	var b strings.Builder
	b.WriteString("\n\n" + txt.header + "\n")
	if len(set.Formulas) > 0 {
		b.WriteString("\n" + txt.formulas + "\n")
		for _, f := range prioritize(set.Formulas, question)[:min(promptFormulas, len(set.Formulas))] {
			b.WriteString("- " + f + "\n")
		}
	}
	if len(set.Variables) > 0 {
		vars := set.Variables[:min(promptVariables, len(set.Variables))]
		b.WriteString("\n" + fmt.Sprintf(txt.variables, strings.Join(vars, ", ")) + "\n")
	}
	if len(set.Units) > 0 {
		units := set.Units[:min(promptUnits, len(set.Units))]
		b.WriteString("\n" + fmt.Sprintf(txt.units, strings.Join(units, ", ")) + "\n")
	}
	b.WriteString("\n" + txt.warning + "\n")
	return b.String()
}

// prioritize moves formulas referenced by the question to the front,
// keeping relative order otherwise.
func prioritize(formulas []string, question string) []string {
	out := make([]string, 0, len(formulas))
	var rest []string
	for _, f := range formulas {
		if lhs := LeftSide(f); lhs != "" && strings.Contains(question, lhs) {
			out = append(out, f)
		} else {
			rest = append(rest, f)
		}
	}
	return append(out, rest...)
}

// NormalizeSymbols rewrites known LaTeX commands to Unicode and turns
// multiplication asterisks between operands into a middle dot.
// Applying it twice gives the same result as applying it once.
func NormalizeSymbols(text string) string {
	if text == "" {
		return text
	}
	text = latexRe.ReplaceAllStringFunc(text, func(cmd string) string {
		if sym, ok := latexSymbols[cmd[1:]]; ok {
			return sym
		}
		return cmd
	})
	// matches share operands, so "a*b*c" needs more than one pass
	for {
		next := spacedStarRe.ReplaceAllString(text, "$1 · $2")
		next = tightStarRe.ReplaceAllString(next, "${1}·${2}")
		if next == text {
			return text
		}
		text = next
	}
}
