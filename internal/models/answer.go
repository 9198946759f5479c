package models

// RetrievedChunk is a chunk returned by a similarity search, best match first.
type RetrievedChunk struct {
	Text     string   `json:"text"`
	Location Location `json:"location"`
	Distance float64  `json:"distance"`
	Rank     int      `json:"rank"`
}

// NotationSet holds the mathematical notations found in a retrieved context.
type NotationSet struct {
	Formulas  []string `json:"formulas"`
	Variables []string `json:"variables"`
	Units     []string `json:"units"`
}

func (n NotationSet) Empty() bool {
	return len(n.Formulas) == 0 && len(n.Variables) == 0 && len(n.Units) == 0
}

func (n NotationSet) Count() int {
	return len(n.Formulas) + len(n.Variables) + len(n.Units)
}

type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Score      int     `json:"score"`
	IsComplete bool    `json:"is_complete"`
	Issues     []Issue `json:"issues"`
}

type ExerciseType string

const (
	ExerciseCalculation   ExerciseType = "calculation"
	ExerciseDemonstration ExerciseType = "demonstration"
	ExerciseAnalysis      ExerciseType = "analysis"
	ExerciseApplication   ExerciseType = "application"
	ExerciseGeneral       ExerciseType = "general"
)

type Source struct {
	Text       string  `json:"text"`
	Page       *int    `json:"page"`
	Confidence float64 `json:"confidence"`
}

// AnswerResult is the structured outcome of a question against a course.
type AnswerResult struct {
	Question           string           `json:"question"`
	Answer             string           `json:"answer"`
	Sources            []Source         `json:"sources"`
	Confidence         float64          `json:"confidence"`
	ResponseTime       float64          `json:"response_time"`
	Validation         ValidationResult `json:"validation"`
	NotationValidation ValidationResult `json:"notation_validation"`
	ExerciseType       ExerciseType     `json:"exercise_type"`
	HasMethodology     bool             `json:"has_methodology"`
	ModelUsed          string           `json:"model_used"`
	TokensUsed         int              `json:"tokens_used"`
	UserPlan           string           `json:"user_plan"`
	Language           string           `json:"language"`
	Attempts           int              `json:"attempts"`
}
