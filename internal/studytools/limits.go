package studytools

import "slices"

var (
	flashcardLimits = map[string]int{"free": 5, "basic": 10, "pro": 20, "premium": 20}
	quizLimits      = map[string]int{"free": 3, "basic": 5, "pro": 10, "premium": 10}
	summaryLengths  = map[string][]string{
		"free":    {"short"},
		"basic":   {"short"},
		"pro":     {"short", "medium"},
		"premium": {"short", "medium", "long"},
	}
)

// FlashcardCount clamps a requested card count to the plan limit.
func FlashcardCount(plan string, n int) int {
	limit, ok := flashcardLimits[plan]
	if !ok {
		limit = flashcardLimits["free"]
	}
	return min(n, limit)
}

// QuizCount clamps a requested question count to the plan limit.
func QuizCount(plan string, n int) int {
	limit, ok := quizLimits[plan]
	if !ok {
		limit = quizLimits["free"]
	}
	return min(n, limit)
}

// SummaryLength downgrades length to "short" when the plan does not allow it.
func SummaryLength(plan, length string) string {
	allowed, ok := summaryLengths[plan]
	if !ok || !slices.Contains(allowed, length) {
		return "short"
	}
	return length
}
