package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rachid48133/studygenie/internal/analysis"
	"github.com/rachid48133/studygenie/internal/chunker"
	"github.com/rachid48133/studygenie/internal/config"
	"github.com/rachid48133/studygenie/internal/embedding"
	"github.com/rachid48133/studygenie/internal/helper"
	"github.com/rachid48133/studygenie/internal/llmservice"
	"github.com/rachid48133/studygenie/internal/models"
	"github.com/rachid48133/studygenie/internal/notation"
	"github.com/rachid48133/studygenie/internal/parser"
	"github.com/rachid48133/studygenie/internal/prompt"
	"github.com/rachid48133/studygenie/internal/store"
	"github.com/rachid48133/studygenie/internal/validation"
	"github.com/rachid48133/studygenie/internal/vectorindex"
)

const (
	defaultTopic = "Cours"

	retrievalWeight    = 0.6
	completenessWeight = 0.4

	contentQueryFR = "Donne-moi le contenu principal du cours"
	contentQueryEN = "Give me the main content of the course"
	minContentLen  = 50
)

type RAG struct {
	store    *store.Store
	embedder *embedding.Service
	llm      llmservice.Generator
	chunker  *chunker.Chunker
	cfg      *config.Config
}

func NewRAG(st *store.Store, embedder *embedding.Service, llm llmservice.Generator, cfg *config.Config) (*RAG, error) {
	c, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}
	return &RAG{store: st, embedder: embedder, llm: llm, chunker: c, cfg: cfg}, nil
}

// IndexCourse extracts, chunks and embeds filePath and replaces the course
// snapshot. Nothing is written unless every step succeeds.
func (r *RAG) IndexCourse(ctx context.Context, userID, courseID, filePath, courseName string) (*models.IndexStats, error) {
	logger := helper.RequestLogger("index").With().Str("user", userID).Str("course", courseID).Logger()
	start := time.Now()

	raw, units, err := parser.Extract(filePath)
	if err != nil {
		return nil, err
	}
	text := chunker.Clean(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyContent, filepath.Base(filePath))
	}

	chunks := r.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyContent, filepath.Base(filePath))
	}
	logger.Info().Int("chunks", len(chunks)).Int("units", units).Msg("Document chunked")

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, failures, err := r.embedder.EmbedChunks(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	idx, err := vectorindex.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	if strings.TrimSpace(courseName) == "" {
		courseName = defaultTopic
	}
	snap := &models.Snapshot{
		Vectors: vectors,
		Chunks:  chunks,
		Metadata: models.CourseMetadata{
			CourseName:        courseName,
			IndexedAt:         time.Now().UTC(),
			ChunksCount:       len(chunks),
			PageCount:         units,
			FileType:          strings.ToLower(filepath.Ext(filePath)),
			EmbeddingModel:    r.embedder.Model(),
			Dimension:         idx.Dimension(),
			EmbeddingFailures: failures,
		},
	}
	if err := r.store.Persist(userID, courseID, snap); err != nil {
		return nil, fmt.Errorf("failed to persist course: %w", err)
	}

	stats := &models.IndexStats{
		ChunksCount:       len(chunks),
		PageCount:         units,
		ElapsedSeconds:    time.Since(start).Seconds(),
		EmbeddingFailures: failures,
	}
	logger.Info().
		Int("chunks", stats.ChunksCount).
		Int("embedding_failures", failures).
		Float64("elapsed", stats.ElapsedSeconds).
		Msg("Course indexed")
	return stats, nil
}

func (r *RAG) load(userID, courseID string) (*models.Snapshot, error) {
	snap, err := r.store.Load(userID, courseID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: course %s", models.ErrCourseNotIndexed, courseID)
	}
	return snap, err
}

// Retrieve returns the topK chunks nearest to query, best match first,
// together with the loaded snapshot.
func (r *RAG) Retrieve(ctx context.Context, userID, courseID, query string, topK int) ([]models.RetrievedChunk, *models.Snapshot, error) {
	snap, err := r.load(userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	if topK <= 0 {
		topK = r.cfg.RAG.TopK
	}

	qvec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, &models.GenerationError{
			Model:   r.embedder.Model(),
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     fmt.Errorf("failed to embed question: %w", err),
		}
	}

	idx, err := vectorindex.Build(snap.Vectors)
	if err != nil {
		return nil, nil, err
	}
	hits, err := idx.Search(qvec, topK)
	if err != nil {
		return nil, nil, err
	}

	out := make([]models.RetrievedChunk, len(hits))
	for i, h := range hits {
		c := snap.Chunks[h.Position]
		out[i] = models.RetrievedChunk{
			Text:     c.Content,
			Location: c.Location(),
			Distance: h.Distance,
			Rank:     i + 1,
		}
	}
	return out, snap, nil
}

type AnswerRequest struct {
	UserID   string
	CourseID string
	Question string
	Plan     string
	TopK     int
	Language string
}

// Answer runs retrieval, grounded generation, validation and at most
// cfg.RAG.MaxRetries regenerations for one question.
func (r *RAG) Answer(ctx context.Context, req AnswerRequest) (*models.AnswerResult, error) {
	start := time.Now()
	logger := helper.RequestLogger("answer").With().Str("user", req.UserID).Str("course", req.CourseID).Logger()

	plan := req.Plan
	if plan == "" {
		plan = r.cfg.LLM.DefaultPlan
	}
	lang := req.Language
	if lang == "" {
		lang = r.cfg.RAG.Language
	}
	lang = prompt.Lang(lang)

	retrieved, snap, err := r.Retrieve(ctx, req.UserID, req.CourseID, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("retrieved", len(retrieved)).Msg("Chunks retrieved")

	plain := prompt.PlainContext(retrieved)
	methods := analysis.ExtractMethodologies(plain)
	exercise := analysis.DetectExerciseType(req.Question, plain)
	notations := notation.Extract(plain)

	topic := snap.Metadata.CourseName
	if topic == "" {
		topic = defaultTopic
	}
	system := prompt.System(topic, lang)
	var parts []string
	if analysis.HasMultipleParts(req.Question) {
		parts = analysis.SubQuestionMarkers(req.Question)
	}
	user := prompt.User(prompt.Input{
		Context:          prompt.Context(retrieved),
		Methodologies:    methods.Methodologies,
		Formulas:         methods.Formulas,
		NotationFragment: notation.BuildPromptFragment(plain, req.Question, lang),
		Question:         req.Question,
		SubQuestions:     parts,
		Lang:             lang,
	})

	model := llmservice.ModelForPlan(r.cfg.LLM, plan)
	attempts := 1
	res, err := r.generate(ctx, llmservice.Request{
		Model:       model,
		System:      system,
		User:        user,
		MaxTokens:   r.cfg.LLM.MaxTokens,
		Temperature: r.cfg.LLM.Temperature,
	}, attempts)
	if err != nil {
		return nil, err
	}
	tokens := res.TotalTokens()
	answer := notation.NormalizeSymbols(res.Text)
	completeness := validation.Completeness(req.Question, answer)
	notationCheck := validation.Notation(answer, notations)
	logger.Debug().Int("score", completeness.Score).Int("notation_score", notationCheck.Score).Msg("Answer validated")

	for retry := 0; retry < r.cfg.RAG.MaxRetries && r.needsRetry(completeness); retry++ {
		attempts++
		issue := ""
		if len(completeness.Issues) > 0 {
			issue = completeness.Issues[0].Message
		}
		logger.Info().Int("score", completeness.Score).Str("issue", issue).Msg("Incomplete answer, regenerating")

		res, err = r.generate(ctx, llmservice.Request{
			Model:       model,
			System:      system,
			User:        prompt.Retry(user, lang, issue),
			MaxTokens:   r.cfg.LLM.RetryMaxTokens,
			Temperature: r.cfg.LLM.Temperature,
		}, attempts)
		if err != nil {
			return nil, err
		}
		tokens += res.TotalTokens()
		answer = notation.NormalizeSymbols(res.Text)
		completeness = validation.Completeness(req.Question, answer)
		notationCheck = validation.Notation(answer, notations)
	}

	result := &models.AnswerResult{
		Question:           req.Question,
		Answer:             answer,
		Sources:            r.sources(retrieved),
		Confidence:         Confidence(retrieved, completeness.Score),
		ResponseTime:       time.Since(start).Seconds(),
		Validation:         completeness,
		NotationValidation: notationCheck,
		ExerciseType:       exercise,
		HasMethodology:     methods.HasMethodology,
		ModelUsed:          model,
		TokensUsed:         tokens,
		UserPlan:           plan,
		Language:           lang,
		Attempts:           attempts,
	}
	logResult(logger, result)
	return result, nil
}

func (r *RAG) needsRetry(v models.ValidationResult) bool {
	return !v.IsComplete && v.Score < r.cfg.RAG.RetryThreshold
}

// generate runs one model call under its own deadline.
func (r *RAG) generate(ctx context.Context, req llmservice.Request, attempt int) (*llmservice.Response, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if t := r.cfg.LLM.Timeout(); t > 0 {
		callCtx, cancel = context.WithTimeout(ctx, t)
	}
	defer cancel()

	res, err := r.llm.Generate(callCtx, req)
	if err != nil {
		return nil, &models.GenerationError{
			Model:   req.Model,
			Attempt: attempt,
			Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded),
			Err:     err,
		}
	}
	return res, nil
}

func (r *RAG) sources(retrieved []models.RetrievedChunk) []models.Source {
	n := min(r.cfg.RAG.SourcesLimit, len(retrieved))
	out := make([]models.Source, n)
	for i, c := range retrieved[:n] {
		out[i] = models.Source{
			Text:       helper.Truncate(c.Text, r.cfg.RAG.SourcePreviewChars),
			Page:       c.Location.Ref(),
			Confidence: 1 / (1 + c.Distance),
		}
	}
	return out
}

// Confidence blends retrieval closeness with the completeness score.
// It stays within [0, 1] for non-negative distances.
func Confidence(retrieved []models.RetrievedChunk, score int) float64 {
	retrieval := 0.0
	if len(retrieved) > 0 {
		sum := 0.0
		for _, c := range retrieved {
			sum += c.Distance
		}
		retrieval = 1 / (1 + sum/float64(len(retrieved)))
	}
	return retrievalWeight*retrieval + completenessWeight*float64(score)/100
}

func logResult(logger zerolog.Logger, res *models.AnswerResult) {
	logger.Info().
		Str("model", res.ModelUsed).
		Int("tokens", res.TokensUsed).
		Int("attempts", res.Attempts).
		Float64("confidence", res.Confidence).
		Float64("elapsed", res.ResponseTime).
		Msg("Answer generated")
}

// CourseContent gathers up to topK chunks of the course as source material
// for the study tools, best match first.
func (r *RAG) CourseContent(ctx context.Context, userID, courseID, lang string, topK int) (string, *models.CourseMetadata, error) {
	query := contentQueryFR
	if prompt.Lang(lang) == "en" {
		query = contentQueryEN
	}
	retrieved, snap, err := r.Retrieve(ctx, userID, courseID, query, topK)
	if err != nil {
		return "", nil, err
	}
	content := prompt.PlainContext(retrieved)
	if len(strings.TrimSpace(content)) < minContentLen {
		content = fmt.Sprintf("Cours: %s\n%s", snap.Metadata.CourseName, content)
	}
	return content, &snap.Metadata, nil
}

// DeleteCourse removes the course snapshot. Deleting an unknown course is not an error.
func (r *RAG) DeleteCourse(userID, courseID string) error {
	if err := r.store.Delete(userID, courseID); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}

// Metadata returns the stored metadata of an indexed course.
func (r *RAG) Metadata(userID, courseID string) (*models.CourseMetadata, error) {
	meta, err := r.store.LoadMetadata(userID, courseID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: course %s", models.ErrCourseNotIndexed, courseID)
	}
	return meta, err
}

// Snapshot loads the full persisted state of a course.
func (r *RAG) Snapshot(userID, courseID string) (*models.Snapshot, error) {
	return r.load(userID, courseID)
}
