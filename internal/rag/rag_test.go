package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rachid48133/studygenie/internal/config"
	"github.com/rachid48133/studygenie/internal/embedding"
	"github.com/rachid48133/studygenie/internal/llmservice"
	"github.com/rachid48133/studygenie/internal/models"
	"github.com/rachid48133/studygenie/internal/store"
)

const letters = 26

// letterEmbedder maps a text to its a-z letter counts and rejects any text
// containing "FAIL".
type letterEmbedder struct{}

func letterVector(text string) []float32 {
	v := make([]float32, letters)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (letterEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "FAIL") {
			return nil, errors.New("provider rejected input")
		}
		out[i] = letterVector(t)
	}
	return out, nil
}

func (e letterEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

// scriptedGenerator replays answers in order, repeating the last one.
type scriptedGenerator struct {
	mu       sync.Mutex
	answers  []string
	requests []llmservice.Request
	block    bool
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llmservice.Request) (*llmservice.Response, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	text := g.answers[min(n, len(g.answers))-1]
	return &llmservice.Response{Text: text, InputTokens: 100, OutputTokens: 20}, nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func newTestRAG(t *testing.T, gen llmservice.Generator) (*RAG, *store.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Embedding.Dimension = letters
	cfg.Embedding.BatchSize = 2
	cfg.LLM.TimeoutSecs = 1

	st := store.New(cfg.DataDir)
	r, err := NewRAG(st, embedding.NewService(letterEmbedder{}, cfg.Embedding), gen, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return r, st
}

func writeCourse(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const completeAnswer = "La loi d'Ohm relie la tension U, la résistance R et le courant I par la relation U = R × I, valable pour un conducteur ohmique."

func TestIndexAndAnswer_SinglePage(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{completeAnswer}}
	r, _ := newTestRAG(t, gen)
	ctx := context.Background()

	path := writeCourse(t, "ohm.txt", "--- Page 1 ---\nPage 1 text under 800 chars. U = R × I (V)")
	stats, err := r.IndexCourse(ctx, "u1", "c1", path, "Électricité")
	if err != nil {
		t.Fatal(err)
	}
	if stats.ChunksCount != 1 || stats.EmbeddingFailures != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	snap, err := r.Snapshot("u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Chunks[0].Page == nil || *snap.Chunks[0].Page != 1 {
		t.Errorf("Expected chunk on page 1, got %+v", snap.Chunks[0])
	}
	if snap.Metadata.FileType != ".txt" || snap.Metadata.CourseName != "Électricité" {
		t.Errorf("unexpected metadata %+v", snap.Metadata)
	}

	res, err := r.Answer(ctx, AnswerRequest{UserID: "u1", CourseID: "c1", Question: "Quelle est la loi d'Ohm ?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Sources) != 1 || res.Sources[0].Page == nil || *res.Sources[0].Page != 1 {
		t.Errorf("Expected one source on page 1, got %+v", res.Sources)
	}
	if res.Attempts != 1 || gen.calls() != 1 {
		t.Errorf("Expected a single generation, got %d attempts and %d calls", res.Attempts, gen.calls())
	}
	if res.TokensUsed != 120 {
		t.Errorf("Expected 120 tokens, got %d", res.TokensUsed)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("confidence out of range: %f", res.Confidence)
	}
	if res.Language != "fr" || res.UserPlan != "free" || res.ModelUsed != "claude-3-haiku-20240307" {
		t.Errorf("unexpected defaults: %s %s %s", res.Language, res.UserPlan, res.ModelUsed)
	}

	req := gen.requests[0]
	if req.MaxTokens != 1200 || req.Temperature != 0.1 {
		t.Errorf("unexpected generation settings %+v", req)
	}
	if !strings.Contains(req.System, "Électricité") {
		t.Error("system prompt should be scoped to the course name")
	}
	if !strings.Contains(req.User, "[Source - Page 1]") {
		t.Errorf("user prompt should label sources, got %q", req.User)
	}
}

func TestAnswer_RetriesExactlyOnce(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{"Oui"}}
	r, _ := newTestRAG(t, gen)
	ctx := context.Background()

	path := writeCourse(t, "c.txt", "Tension et courant dans un circuit résistif.")
	if _, err := r.IndexCourse(ctx, "u1", "c1", path, ""); err != nil {
		t.Fatal(err)
	}

	res, err := r.Answer(ctx, AnswerRequest{UserID: "u1", CourseID: "c1", Question: "Calcule a) la tension et b) le courant"})
	if err != nil {
		t.Fatal(err)
	}
	if gen.calls() != 2 || res.Attempts != 2 {
		t.Fatalf("Expected exactly 2 generation calls, got %d (attempts %d)", gen.calls(), res.Attempts)
	}
	if res.Validation.Score >= 50 {
		t.Errorf("low score should be reported as is, got %d", res.Validation.Score)
	}
	if res.TokensUsed != 240 {
		t.Errorf("tokens should add up across attempts, got %d", res.TokensUsed)
	}

	retry := gen.requests[1]
	if retry.MaxTokens != 1500 {
		t.Errorf("Expected retry budget 1500, got %d", retry.MaxTokens)
	}
	if !strings.Contains(retry.User, "Problème : Sous-question a) non traitée") {
		t.Errorf("retry prompt should name the first issue, got %q", retry.User)
	}
	if !strings.HasPrefix(retry.User, gen.requests[0].User) {
		t.Error("retry prompt should extend the first prompt")
	}
}

func TestAnswer_NoRetryWhenDisabled(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{"Oui"}}
	r, _ := newTestRAG(t, gen)
	r.cfg.RAG.MaxRetries = 0
	ctx := context.Background()

	if _, err := r.IndexCourse(ctx, "u1", "c1", writeCourse(t, "c.txt", "Tension et courant."), ""); err != nil {
		t.Fatal(err)
	}
	res, err := r.Answer(ctx, AnswerRequest{UserID: "u1", CourseID: "c1", Question: "Calcule a) la tension et b) le courant"})
	if err != nil {
		t.Fatal(err)
	}
	if gen.calls() != 1 || res.Attempts != 1 {
		t.Errorf("Expected a single generation call, got %d (attempts %d)", gen.calls(), res.Attempts)
	}
}

func TestAnswer_MultiPartInstruction(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"Calcule a) la tension et b) le courant", true},
		{"Que vaut la tension au point a) ?", false},
		{"Que vaut la tension ?", false},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			gen := &scriptedGenerator{answers: []string{completeAnswer + " a) U = 10 V. b) I = 2 A."}}
			r, _ := newTestRAG(t, gen)
			ctx := context.Background()
			if _, err := r.IndexCourse(ctx, "u1", "c1", writeCourse(t, "c.txt", "Tension et courant."), ""); err != nil {
				t.Fatal(err)
			}
			if _, err := r.Answer(ctx, AnswerRequest{UserID: "u1", CourseID: "c1", Question: tt.question}); err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(gen.requests[0].User, "plusieurs parties"); got != tt.want {
				t.Errorf("multi-part instruction present = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnswer_RejectsUnsafeCourseID(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{completeAnswer}}
	r, _ := newTestRAG(t, gen)
	_, err := r.Answer(context.Background(), AnswerRequest{UserID: "u1", CourseID: "../..", Question: "Loi d'Ohm ?"})
	if !errors.Is(err, models.ErrInvalidID) {
		t.Errorf("Expected ErrInvalidID, got %v", err)
	}
	if gen.calls() != 0 {
		t.Error("no generation should happen for an invalid course id")
	}
}

func TestAnswer_NormalizesAnswer(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{`On a P = U \times I, donc la puissance vaut U*I watts dans ce circuit résistif simple et bien connu.`}}
	r, _ := newTestRAG(t, gen)
	ctx := context.Background()

	path := writeCourse(t, "p.txt", "Puissance électrique P = U × I")
	if _, err := r.IndexCourse(ctx, "u1", "c1", path, "Puissance"); err != nil {
		t.Fatal(err)
	}
	res, err := r.Answer(ctx, AnswerRequest{UserID: "u1", CourseID: "c1", Question: "Quelle est la puissance ?"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Answer, "U × I") || !strings.Contains(res.Answer, "U·I") {
		t.Errorf("answer not normalized: %q", res.Answer)
	}
}

func TestAnswer_NotIndexed(t *testing.T) {
	r, _ := newTestRAG(t, &scriptedGenerator{answers: []string{completeAnswer}})
	_, err := r.Answer(context.Background(), AnswerRequest{UserID: "u1", CourseID: "missing", Question: "?"})
	if !errors.Is(err, models.ErrCourseNotIndexed) {
		t.Errorf("Expected ErrCourseNotIndexed, got %v", err)
	}
}

func TestAnswer_Timeout(t *testing.T) {
	gen := &scriptedGenerator{block: true}
	r, _ := newTestRAG(t, gen)
	ctx := context.Background()

	path := writeCourse(t, "c.txt", "Un cours court.")
	if _, err := r.IndexCourse(ctx, "u1", "c1", path, ""); err != nil {
		t.Fatal(err)
	}
	_, err := r.Answer(ctx, AnswerRequest{UserID: "u1", CourseID: "c1", Question: "Quoi ?"})
	if !errors.Is(err, models.ErrTimeout) || !errors.Is(err, models.ErrGeneration) {
		t.Errorf("Expected a generation timeout, got %v", err)
	}
	var gerr *models.GenerationError
	if !errors.As(err, &gerr) || gerr.Attempt != 1 {
		t.Errorf("Expected GenerationError for attempt 1, got %v", err)
	}
}

func TestAnswer_QuestionEmbeddingFails(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{completeAnswer}}
	r, _ := newTestRAG(t, gen)
	ctx := context.Background()

	path := writeCourse(t, "c.txt", "Un cours court.")
	if _, err := r.IndexCourse(ctx, "u1", "c1", path, ""); err != nil {
		t.Fatal(err)
	}
	_, err := r.Answer(ctx, AnswerRequest{UserID: "u1", CourseID: "c1", Question: "FAIL"})
	if !errors.Is(err, models.ErrGeneration) {
		t.Errorf("Expected ErrGeneration, got %v", err)
	}
	if gen.calls() != 0 {
		t.Error("the model should not be called without retrieval")
	}
}

func TestIndexCourse_PositionalInvariant(t *testing.T) {
	r, _ := newTestRAG(t, &scriptedGenerator{answers: []string{completeAnswer}})
	ctx := context.Background()

	text := "--- Page 1 ---\nAlpha beta gamma.\n--- Page 2 ---\nThis page FAILs to embed.\n--- Page 3 ---\nDelta epsilon zeta."
	stats, err := r.IndexCourse(ctx, "u1", "c1", writeCourse(t, "c.txt", text), "")
	if err != nil {
		t.Fatal(err)
	}
	if stats.ChunksCount != 3 || stats.EmbeddingFailures != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	snap, err := r.Snapshot("u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Vectors) != len(snap.Chunks) {
		t.Fatalf("%d vectors for %d chunks", len(snap.Vectors), len(snap.Chunks))
	}
	for i, c := range snap.Chunks {
		want := letterVector(c.Content)
		if strings.Contains(c.Content, "FAIL") {
			want = make([]float32, letters)
		}
		for d := range want {
			if snap.Vectors[i][d] != want[d] {
				t.Fatalf("vector %d is not the embedding of chunk %d", i, i)
			}
		}
		if c.Page == nil || *c.Page != i+1 {
			t.Errorf("chunk %d should be on page %d", i, i+1)
		}
	}
	if snap.Metadata.EmbeddingFailures != 1 {
		t.Errorf("failures should be recorded in metadata, got %d", snap.Metadata.EmbeddingFailures)
	}
}

func TestIndexCourse_FailureKeepsPreviousSnapshot(t *testing.T) {
	r, st := newTestRAG(t, &scriptedGenerator{answers: []string{completeAnswer}})
	ctx := context.Background()

	if _, err := r.IndexCourse(ctx, "u1", "c1", writeCourse(t, "c.txt", "Premier contenu."), "v1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"empty", writeCourse(t, "empty.txt", "  \n\n  "), models.ErrEmptyContent},
		{"unsupported", writeCourse(t, "video.mp4", "x"), models.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.IndexCourse(ctx, "u1", "c1", tt.path, "v2")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			meta, err := st.LoadMetadata("u1", "c1")
			if err != nil || meta.CourseName != "v1" {
				t.Errorf("previous snapshot should survive, got %+v, %v", meta, err)
			}
		})
	}

	if _, err := r.IndexCourse(ctx, "u1", "c2", writeCourse(t, "empty.txt", " "), ""); err == nil {
		t.Fatal("indexing an empty file should fail")
	}
	if _, err := st.Load("u1", "c2"); !errors.Is(err, models.ErrNotFound) {
		t.Error("a failed first indexing should not create a snapshot")
	}
}

func TestDeleteCourse(t *testing.T) {
	r, st := newTestRAG(t, &scriptedGenerator{answers: []string{completeAnswer}})
	if _, err := r.IndexCourse(context.Background(), "u1", "c1", writeCourse(t, "c.txt", "Contenu."), ""); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteCourse("u1", "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Load("u1", "c1"); !errors.Is(err, models.ErrNotFound) {
		t.Error("snapshot should be gone")
	}
	if _, err := r.Metadata("u1", "c1"); !errors.Is(err, models.ErrCourseNotIndexed) {
		t.Errorf("Expected ErrCourseNotIndexed, got %v", err)
	}
	if err := r.DeleteCourse("u1", "c1"); err != nil {
		t.Errorf("second delete should succeed, got %v", err)
	}
}

func TestCourseContent(t *testing.T) {
	r, _ := newTestRAG(t, &scriptedGenerator{answers: []string{completeAnswer}})
	text := "--- Page 1 ---\nLe courant électrique est un déplacement de charges.\n--- Page 2 ---\nLa tension se mesure en volts avec un voltmètre."
	if _, err := r.IndexCourse(context.Background(), "u1", "c1", writeCourse(t, "c.txt", text), "Électricité"); err != nil {
		t.Fatal(err)
	}
	content, meta, err := r.CourseContent(context.Background(), "u1", "c1", "fr", 30)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "déplacement de charges") || !strings.Contains(content, "voltmètre") {
		t.Errorf("content should include every chunk, got %q", content)
	}
	if meta.CourseName != "Électricité" {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
		score     int
		want      float64
	}{
		{"perfect", []float64{0, 0}, 100, 1},
		{"no retrieval", nil, 0, 0},
		{"mean distance one", []float64{0.5, 1.5}, 50, 0.6*0.5 + 0.2},
		{"far", []float64{1e9}, 0, 0.6 / (1 + 1e9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := make([]models.RetrievedChunk, len(tt.distances))
			for i, d := range tt.distances {
				chunks[i].Distance = d
			}
			got := Confidence(chunks, tt.score)
			if got < 0 || got > 1 {
				t.Fatalf("confidence %f out of [0, 1]", got)
			}
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Confidence() = %f, want %f", got, tt.want)
			}
		})
	}
}
