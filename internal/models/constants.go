package models

const (
	PageMarkerRegex  = `(?m)^[ \t]*--- Page (\d+) ---[ \t]*$`
	SlideMarkerRegex = `(?m)^[ \t]*--- Slide (\d+) ---[ \t]*$`
	PageMarker       = "--- Page %d ---"
	SlideMarker      = "--- Slide %d ---"

	NotationFormulaRegex = `[A-Z][a-z]?\s*=\s*[^.;\n]+`
	NotationUnitRegex    = `\(([A-ZΩ])\)`
	SubQuestionRegex     = `[a-z]\)`

	ContextSeparator = "\n\n---\n\n"
	ThinkTag         = `(?s)<think>.*?</think>`

	DefaultLanguage = "fr"
	DefaultPlan     = "free"
)

// MethodologyPatterns capture a heading followed by a bulleted or numbered list.
var MethodologyPatterns = []string{
	`(?im)(?:méthodologie|méthode|procédure|étapes?)\s*:?[ \t]*\n((?:[-•\d][ \t]*.+\n)+)`,
	`(?im)(?:pour|afin de)\s+(?:calculer|résoudre|trouver)\s+.+?:[ \t]*\n((?:[-•\d][ \t]*.+\n)+)`,
	`(?im)(?:methodology|method|procedure|steps?)\s*:?[ \t]*\n((?:[-•\d][ \t]*.+\n)+)`,
	`(?im)(?:to|in order to)\s+(?:calculate|compute|solve|find)\s+.+?:[ \t]*\n((?:[-•\d][ \t]*.+\n)+)`,
}

// FormulaHintPatterns find formula-like fragments used as generation hints.
var FormulaHintPatterns = []string{
	`[A-Za-z_]\s*=\s*[^=\n]{5,50}`,
	`\\frac\{.+?\}\{.+?\}`,
	`[A-Za-z]\^[0-9\{]`,
}

// ExercisePattern lists the keyword patterns of one exercise type.
type ExercisePattern struct {
	Type     ExerciseType
	Patterns []string
}

// ExercisePatterns are checked in order; the first matching type wins.
var ExercisePatterns = []ExercisePattern{
	{Type: ExerciseCalculation, Patterns: []string{`calcul\w*`, `détermin\w*`, `\btrouv\w*\s+(?:la|le|l')\s*\w+`, `\bcomput\w*`, `\bdetermin\w*`}},
	{Type: ExerciseDemonstration, Patterns: []string{`démontr\w*`, `prouv\w*`, `justifi\w*`, `\bprove\w*`, `\bdemonstrat\w*`}},
	{Type: ExerciseAnalysis, Patterns: []string{`analys\w*`, `analyz\w*`, `compar\w*`, `expliqu\w*`, `\bexplain\w*`}},
	{Type: ExerciseApplication, Patterns: []string{`appliqu\w*`, `utilis\w*`, `cas\s+pratique`, `\bapply\w*`, `\bcase\s+study`}},
}

// RefusalPhrases exempt an answer from the length penalty.
var RefusalPhrases = []string{
	"n'est pas dans le cours",
	"aucune donnée disponible pour ce sujet",
	"est hors du sujet",
	"not in the course",
	"no data available for this topic",
	"is outside the scope of",
}

// PlanModels maps subscription plans to default generation models.
var PlanModels = map[string]string{
	"free":    "claude-3-haiku-20240307",
	"basic":   "claude-sonnet-4-20250514",
	"pro":     "claude-sonnet-4-20250514",
	"premium": "claude-sonnet-4-20250514",
}
