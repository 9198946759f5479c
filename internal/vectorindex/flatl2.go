// Package vectorindex provides exact nearest neighbor search over course embeddings.
package vectorindex

import (
	"container/heap"
	"fmt"

	"github.com/rachid48133/studygenie/internal/models"
)

// Hit is one search result. Position is the vector's index in the build input,
// which is also the position of its chunk.
type Hit struct {
	Position int
	Distance float64
}

// FlatL2 is an exact index over squared Euclidean distance.
// It is immutable after Build and safe for concurrent searches.
type FlatL2 struct {
	vectors   [][]float32
	dimension int
}

// Build indexes vectors in order. All vectors must share one dimension.
func Build(vectors [][]float32) (*FlatL2, error) {
	idx := &FlatL2{vectors: vectors}
	if len(vectors) == 0 {
		return idx, nil
	}
	idx.dimension = len(vectors[0])
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", models.ErrDimensionMismatch, i, len(v), idx.dimension)
		}
	}
	return idx, nil
}

func (idx *FlatL2) Len() int { return len(idx.vectors) }

func (idx *FlatL2) Dimension() int { return idx.dimension }

// Search returns the min(k, Len) nearest vectors, nearest first.
// Equal distances are ordered by position.
// Time Complexity: O(n * d + n * log(k))
func (idx *FlatL2) Search(query []float32, k int) ([]Hit, error) {
	if len(idx.vectors) == 0 {
		return nil, models.ErrEmptyIndex
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", models.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	k = min(k, len(idx.vectors))

	h := &hitHeap{}
	for pos, v := range idx.vectors {
		hit := Hit{Position: pos, Distance: SquaredL2(query, v)}
		if h.Len() < k {
			heap.Push(h, hit)
		} else if worse((*h)[0], hit) {
			(*h)[0] = hit
			heap.Fix(h, 0)
		}
	}

	hits := make([]Hit, h.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(h).(Hit)
	}
	return hits, nil
}

// SquaredL2 returns the squared Euclidean distance between a and b.
// Accumulates in float64.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func worse(a, b Hit) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Position > b.Position
}

// hitHeap is a max-heap with the worst kept hit at the root.
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) { *h = append(*h, x.(Hit)) }

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
