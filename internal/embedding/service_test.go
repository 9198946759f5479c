package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rachid48133/studygenie/internal/config"
)

// fakeProvider returns [len(text), index of first rune, 1] and fails on
// any input containing "FAIL".
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
}

func (f *fakeProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "FAIL") {
			return nil, errors.New("provider rejected input")
		}
		out[i] = []float32{float32(len(t)), float32(t[0]), 1}
	}
	return out, nil
}

func (f *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func testConfig(dim, batch int) config.EmbeddingConfig {
	return config.EmbeddingConfig{Model: "fake", Dimension: dim, BatchSize: batch, Workers: 3, TimeoutSecs: 5}
}

func TestEmbedChunks_PreservesOrder(t *testing.T) {
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "g"}
	s := NewService(&fakeProvider{}, testConfig(3, 2))

	vecs, failures, err := s.EmbedChunks(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if failures != 0 {
		t.Errorf("Expected no failures, got %d", failures)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("Expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		if vecs[i][0] != float32(len(text)) || vecs[i][1] != float32(text[0]) {
			t.Errorf("vector %d does not belong to %q: %v", i, text, vecs[i])
		}
	}
}

func TestEmbedChunks_SoftFailure(t *testing.T) {
	texts := []string{"ok one", "FAIL here", "ok three", "ok four"}
	p := &fakeProvider{}
	s := NewService(p, testConfig(3, 2))

	vecs, failures, err := s.EmbedChunks(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if failures != 1 {
		t.Errorf("Expected 1 failure, got %d", failures)
	}
	for _, x := range vecs[1] {
		if x != 0 {
			t.Fatalf("failed chunk should get a zero vector, got %v", vecs[1])
		}
	}
	if len(vecs[1]) != 3 {
		t.Errorf("zero vector should have dimension 3, got %d", len(vecs[1]))
	}
	if vecs[0][0] != float32(len("ok one")) {
		t.Errorf("neighbour of a failed chunk should still be embedded, got %v", vecs[0])
	}
	// two batch calls plus two single retries for the failed batch
	if p.calls != 4 {
		t.Errorf("Expected 4 provider calls, got %d", p.calls)
	}
}

func TestEmbedChunks_InfersDimension(t *testing.T) {
	s := NewService(&fakeProvider{}, testConfig(0, 1))
	vecs, failures, err := s.EmbedChunks(context.Background(), []string{"FAIL", "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if failures != 1 || len(vecs[0]) != 3 {
		t.Errorf("Expected one zero vector of inferred dimension 3, got %v (failures %d)", vecs[0], failures)
	}

	if _, _, err := s.EmbedChunks(context.Background(), []string{"FAIL"}); err == nil {
		t.Error("Expected an error when no dimension can be known")
	}
}

func TestEmbedChunks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewService(&fakeProvider{delay: time.Second}, testConfig(3, 1))

	_, _, err := s.EmbedChunks(ctx, []string{"a", "b"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEmbed_SoftAndQueryHard(t *testing.T) {
	s := NewService(&fakeProvider{}, testConfig(3, 4))

	v, ok := s.Embed(context.Background(), "FAIL")
	if ok || len(v) != 3 || v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Errorf("Expected zero vector, got %v (ok %v)", v, ok)
	}
	if v, ok := s.Embed(context.Background(), "hello"); !ok || v[0] != 5 {
		t.Errorf("unexpected embedding %v (ok %v)", v, ok)
	}
	if _, err := s.EmbedQuery(context.Background(), "FAIL"); err == nil {
		t.Error("EmbedQuery should report provider errors")
	}
	q, err := s.EmbedQuery(context.Background(), "hello")
	if err != nil || q[0] != 5 {
		t.Errorf("unexpected query embedding %v, %v", q, err)
	}
}
