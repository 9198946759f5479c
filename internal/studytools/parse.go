package studytools

import (
	"strings"
)

const blockSeparator = "---"

var optionLabels = []string{"A)", "B)", "C)", "D)"}

// ParseFlashcards reads "Q: ... R: ..." blocks separated by "---".
// Blocks missing either part are skipped; at most n cards are returned.
func ParseFlashcards(text string, n int) []Flashcard {
	cards := []Flashcard{}
	for _, block := range strings.Split(text, blockSeparator) {
		if len(cards) >= n {
			break
		}
		qi := strings.Index(block, "Q:")
		ri := strings.Index(block, "R:")
		if qi < 0 || ri < 0 || ri < qi {
			continue
		}
		q := strings.TrimSpace(block[qi+len("Q:") : ri])
		r := strings.TrimSpace(block[ri+len("R:"):])
		if q == "" || r == "" {
			continue
		}
		cards = append(cards, Flashcard{Question: q, Answer: r})
	}
	return cards
}

// ParseQuiz reads blocks of the form
//
//	Q: question
//	A) .. B) .. C) .. D) ..
//	CORRECT: letter
//	FEEDBACK: text
//
// separated by "---". A block without a question, options or a valid
// correct letter is skipped; at most n questions are returned.
func ParseQuiz(text string, n int) []QuizQuestion {
	questions := []QuizQuestion{}
	for _, block := range strings.Split(text, blockSeparator) {
		if len(questions) >= n {
			break
		}
		if q, ok := parseQuizBlock(block); ok {
			questions = append(questions, q)
		}
	}
	return questions
}

func parseQuizBlock(block string) (QuizQuestion, bool) {
	qi := strings.Index(block, "Q:")
	ci := strings.Index(block, "CORRECT:")
	if qi < 0 || ci < 0 {
		return QuizQuestion{}, false
	}
	body := block[:ci]

	first := strings.Index(body, optionLabels[0])
	if first < qi {
		return QuizQuestion{}, false
	}
	q := QuizQuestion{Question: strings.TrimSpace(body[qi+len("Q:") : first])}
	if q.Question == "" {
		return QuizQuestion{}, false
	}

	// each option runs until the next label, the last one until CORRECT:
	starts := make([]int, 0, len(optionLabels))
	for _, label := range optionLabels {
		i := strings.Index(body, label)
		if i < 0 {
			break
		}
		if len(starts) > 0 && i < starts[len(starts)-1] {
			return QuizQuestion{}, false
		}
		starts = append(starts, i)
	}
	for k, s := range starts {
		end := len(body)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		q.Options = append(q.Options, strings.TrimSpace(body[s+len(optionLabels[k]):end]))
	}

	rest := block[ci+len("CORRECT:"):]
	line, _, _ := strings.Cut(rest, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return QuizQuestion{}, false
	}
	q.Correct = int(strings.ToUpper(line[:1])[0]) - 'A'
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return QuizQuestion{}, false
	}

	if _, fb, ok := strings.Cut(rest, "FEEDBACK:"); ok {
		q.Feedback = strings.TrimSpace(fb)
	}
	return q, true
}
