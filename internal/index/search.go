package index

import "sort"

// Hit is a single nearest-neighbour result.
type Hit struct {
	ChunkID int
	Text    string
	Score   float32
}

// searchTopK scores query against every vector in vecs by inner product
// and returns the top-k hits, highest score first. Exact search is
// explicitly acceptable for the expected corpus sizes per spec.md §4.3,
// so this stays a stdlib linear scan rather than reaching for an ANN
// library from the pack — justified in DESIGN.md.
func searchTopK(query []float32, chunks []Chunk, vecs [][]float32, k int) []Hit {
	if k <= 0 {
		k = 5
	}
	hits := make([]Hit, 0, len(chunks))
	for i, c := range chunks {
		score := innerProduct(query, vecs[i])
		hits = append(hits, Hit{ChunkID: c.ChunkID, Text: c.Text, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func innerProduct(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
