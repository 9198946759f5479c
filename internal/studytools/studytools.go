// Package studytools generates flashcards, quizzes, summaries and
// explanations from course content.
package studytools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rachid48133/studygenie/internal/config"
	"github.com/rachid48133/studygenie/internal/llmservice"
	"github.com/rachid48133/studygenie/internal/models"
	"github.com/rachid48133/studygenie/internal/prompt"
)

const (
	cardsContentCap    = 3000
	flashcardsMaxTok   = 2000
	quizMaxTokens      = 2500
	explanationMaxTok  = 2000
	wordsPerPage       = 260
	maxSummaryCap      = 60000
	contentPerPage     = 2000
	maxSummaryTokens   = 8000
	summaryTokensPage  = 180
	defaultSummaryKind = "medium"
)

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
	Feedback string   `json:"feedback"`
}

// Tools calls the language model for every study aid.
type Tools struct {
	llm llmservice.Generator
	cfg config.LLMConfig
}

func New(llm llmservice.Generator, cfg config.LLMConfig) *Tools {
	return &Tools{llm: llm, cfg: cfg}
}

func langInstruction(lang string) string {
	if prompt.Lang(lang) == "en" {
		return "in English"
	}
	return "en français"
}

func capRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (t *Tools) generate(ctx context.Context, plan, user string, maxTokens int) (string, error) {
	model := llmservice.ModelForPlan(t.cfg, plan)
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if d := t.cfg.Timeout(); d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	start := time.Now()
	res, err := t.llm.Generate(callCtx, llmservice.Request{
		Model:       model,
		User:        user,
		MaxTokens:   maxTokens,
		Temperature: t.cfg.Temperature,
	})
	if err != nil {
		return "", &models.GenerationError{
			Model:   model,
			Attempt: 1,
			Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded),
			Err:     err,
		}
	}
	log.Debug().Str("model", model).Int("tokens", res.TotalTokens()).Dur("elapsed", time.Since(start)).Msg("Study tool generated")
	return res.Text, nil
}

// Flashcards asks for n question/answer cards. Malformed cards are dropped.
func (t *Tools) Flashcards(ctx context.Context, content string, n int, lang, plan string) ([]Flashcard, error) {
	if n <= 0 {
		return []Flashcard{}, nil
	}
	p := fmt.Sprintf(flashcardsPrompt, n, langInstruction(lang), capRunes(content, cardsContentCap), n)
	text, err := t.generate(ctx, plan, p, flashcardsMaxTok)
	if err != nil {
		return nil, err
	}
	cards := ParseFlashcards(text, n)
	if len(cards) < n {
		log.Warn().Int("requested", n).Int("parsed", len(cards)).Msg("Fewer flashcards than requested")
	}
	return cards, nil
}

// Quiz asks for n multiple choice questions. Malformed questions are dropped.
func (t *Tools) Quiz(ctx context.Context, content string, n int, lang, plan string) ([]QuizQuestion, error) {
	if n <= 0 {
		return []QuizQuestion{}, nil
	}
	p := fmt.Sprintf(quizPrompt, n, langInstruction(lang), capRunes(content, cardsContentCap), n)
	text, err := t.generate(ctx, plan, p, quizMaxTokens)
	if err != nil {
		return nil, err
	}
	questions := ParseQuiz(text, n)
	if len(questions) < n {
		log.Warn().Int("requested", n).Int("parsed", len(questions)).Msg("Fewer quiz questions than requested")
	}
	return questions, nil
}

// Summary writes a structured summary. length is short, medium or long;
// numPages > 0 sets a word target and widens the content and token budgets.
func (t *Tools) Summary(ctx context.Context, content, length string, numPages int, lang, plan string) (string, error) {
	lc, ok := lengthConfigs[length]
	if !ok {
		lc = lengthConfigs[defaultSummaryKind]
	}

	contentCap, maxTokens, target := lc.contentCap, lc.maxTokens, ""
	if numPages > 0 {
		contentCap = min(maxSummaryCap, max(contentCap, numPages*contentPerPage))
		maxTokens = min(maxSummaryTokens, max(maxTokens, numPages*summaryTokensPage))
		target = fmt.Sprintf(summaryTarget, numPages*wordsPerPage)
	}

	p := fmt.Sprintf(summaryPrompt, langInstruction(lang), capRunes(content, contentCap), lc.instruction, target)
	text, err := t.generate(ctx, plan, p, maxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Explanation turns a raw answer into a step by step explanation.
func (t *Tools) Explanation(ctx context.Context, question, answer, lang, plan string) (string, error) {
	p := fmt.Sprintf(explanationPrompt, question, answer, langInstruction(lang))
	return t.generate(ctx, plan, p, explanationMaxTok)
}
