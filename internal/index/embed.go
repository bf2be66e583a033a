package index

import (
	"context"
	"math"
)

// Embedder converts text to fixed-dimension embedding vectors. This is the
// external embedding function collaborator from spec.md §1; a real
// implementation calls out to a local model server. Interface shape
// grounded on intelligencedev-manifold's internal/rag/embedder.Embedder,
// trimmed to the pure encode contract this spec needs (no Ping/health
// check, since the embedder's reachability is the caller's concern here).
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
}

// normalize L2-normalizes v in place so inner product equals cosine
// similarity, per spec.md §4.3.
func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= inv
	}
}

func normalizeAll(vecs [][]float32) {
	for _, v := range vecs {
		normalize(v)
	}
}
