package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/sync/errgroup"

	"github.com/rachid48133/studygenie/internal/config"
)

// Service wraps a provider with batching, bounded parallelism, per-call
// timeouts and the zero-vector fallback used while indexing.
type Service struct {
	provider  embeddings.Embedder
	model     string
	dimension int
	batchSize int
	workers   int
	timeout   time.Duration
}

func NewService(provider embeddings.Embedder, cfg config.EmbeddingConfig) *Service {
	s := &Service{
		provider:  provider,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		timeout:   cfg.Timeout(),
	}
	if s.batchSize <= 0 {
		s.batchSize = 1
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	return s
}

func (s *Service) Model() string { return s.model }

// Dimension is the configured dimension, or 0 when it is taken from the provider.
func (s *Service) Dimension() int { return s.dimension }

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) embedOne(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	vecs, err := s.provider.EmbedDocuments(callCtx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	if s.dimension > 0 && len(vecs[0]) != s.dimension {
		return nil, fmt.Errorf("embedding has dimension %d, expected %d", len(vecs[0]), s.dimension)
	}
	return vecs[0], nil
}

// Embed never fails: a provider error yields a zero vector of the
// configured dimension, which is empty when no dimension is configured.
// ok reports whether the vector came from the provider.
func (s *Service) Embed(ctx context.Context, text string) (v []float32, ok bool) {
	v, err := s.embedOne(ctx, text)
	if err != nil {
		log.Warn().Err(err).Int("dimension", s.dimension).Msg("Embedding failed, using zero vector")
		return make([]float32, s.dimension), false
	}
	return v, true
}

// EmbedQuery embeds a question. Unlike Embed it reports provider errors.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, text)
}

// EmbedChunks embeds texts in batches, keeping input order. A failed batch is
// retried text by text and every text that still fails gets a zero vector.
// It returns the number of substituted vectors. Only cancellation of ctx, or
// a run where no dimension can be known, is an error.
func (s *Service) EmbedChunks(ctx context.Context, texts []string) ([][]float32, int, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		g.Go(func() error {
			return s.embedBatch(gctx, texts[start:end], out[start:end], start)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	dim := s.dimension
	if dim == 0 {
		for _, v := range out {
			if v != nil {
				dim = len(v)
				break
			}
		}
		if dim == 0 {
			return nil, 0, errors.New("no embedding succeeded and no dimension is configured")
		}
	}

	failures := 0
	for i, v := range out {
		if v != nil && len(v) == dim {
			continue
		}
		if v != nil {
			log.Warn().Int("chunk", i).Int("dimension", len(v)).Int("expected", dim).Msg("Embedding has wrong dimension, using zero vector")
		}
		out[i] = make([]float32, dim)
		failures++
	}
	if failures > 0 {
		log.Warn().Int("failures", failures).Int("total", len(texts)).Msg("Some chunks were indexed with zero vectors")
	}
	return out, failures, nil
}

// embedBatch fills dst with the embeddings of batch, leaving failed slots nil.
func (s *Service) embedBatch(ctx context.Context, batch []string, dst [][]float32, offset int) error {
	callCtx, cancel := s.callContext(ctx)
	vecs, err := s.provider.EmbedDocuments(callCtx, batch)
	cancel()
	if err == nil && len(vecs) == len(batch) {
		copy(dst, vecs)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vecs))
	}
	log.Warn().Err(err).Int("offset", offset).Int("size", len(batch)).Msg("Batch embedding failed, retrying one by one")

	for i, text := range batch {
		v, ok := s.Embed(ctx, text)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ok {
			dst[i] = v
		}
	}
	return nil
}
