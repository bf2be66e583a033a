package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// cacheChunkEntry is the persisted shape of chunks.json.
type cacheChunkEntry struct {
	ChunkID     int    `json:"chunk_id"`
	Text        string `json:"text"`
	SourceRowID int64  `json:"source_row_id"`
}

// cacheMeta is the persisted shape of meta.json.
type cacheMeta struct {
	NChunks          int       `json:"n_chunks"`
	Dim              int       `json:"dim"`
	EmbeddingModelID string    `json:"embedding_model_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// rulesHash computes SHA-256 over the concatenation of active context
// contents in order, per spec.md §4.3's cache key definition.
func rulesHash(contents []string) string {
	h := sha256.New()
	for _, c := range contents {
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cacheDir returns <dataRoot>/rag_cache/<hash>.
func cacheDir(dataRoot, hash string) string {
	return filepath.Join(dataRoot, "rag_cache", hash)
}

// loadCache reads a cache directory back into chunks+vectors, or returns
// ok=false if absent, unreadable, or dimension mismatched.
func loadCache(dataRoot, hash string, wantDim int) (chunks []Chunk, vecs [][]float32, meta cacheMeta, ok bool) {
	dir := cacheDir(dataRoot, hash)

	metaBytes, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return nil, nil, cacheMeta{}, false
	}
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, cacheMeta{}, false
	}
	if meta.Dim != wantDim {
		return nil, nil, cacheMeta{}, false
	}

	chunkBytes, err := os.ReadFile(filepath.Join(dir, "chunks.json"))
	if err != nil {
		return nil, nil, cacheMeta{}, false
	}
	var entries []cacheChunkEntry
	if err := json.Unmarshal(chunkBytes, &entries); err != nil {
		return nil, nil, cacheMeta{}, false
	}

	embBytes, err := os.ReadFile(filepath.Join(dir, "embeddings.bin"))
	if err != nil {
		return nil, nil, cacheMeta{}, false
	}
	wantLen := meta.NChunks * meta.Dim * 4
	if len(embBytes) != wantLen {
		return nil, nil, cacheMeta{}, false
	}

	chunks = make([]Chunk, len(entries))
	vecs = make([][]float32, len(entries))
	for i, e := range entries {
		chunks[i] = Chunk{ChunkID: e.ChunkID, Text: e.Text, SourceRowID: e.SourceRowID}
		v := make([]float32, meta.Dim)
		base := i * meta.Dim * 4
		for d := 0; d < meta.Dim; d++ {
			bits := binary.LittleEndian.Uint32(embBytes[base+d*4 : base+d*4+4])
			v[d] = math.Float32frombits(bits)
		}
		vecs[i] = v
	}
	return chunks, vecs, meta, true
}

// writeCache persists chunks+vectors under a fresh content-addressed
// directory; cache entries are never mutated in place (spec.md §4.3),
// so this always writes to a brand new <hash> directory and relies on
// an atomic rename to avoid readers observing a half-written cache.
func writeCache(dataRoot, hash string, chunks []Chunk, vecs [][]float32, modelID string) error {
	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	dir := cacheDir(dataRoot, hash)
	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return err
	}

	entries := make([]cacheChunkEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = cacheChunkEntry{ChunkID: c.ChunkID, Text: c.Text, SourceRowID: c.SourceRowID}
	}
	chunkBytes, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, "chunks.json"), chunkBytes, 0o644); err != nil {
		return err
	}

	embBytes := make([]byte, 0, len(vecs)*dim*4)
	buf := make([]byte, 4)
	for _, v := range vecs {
		for _, x := range v {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			embBytes = append(embBytes, buf...)
		}
	}
	if err := os.WriteFile(filepath.Join(tmp, "embeddings.bin"), embBytes, 0o644); err != nil {
		return err
	}

	meta := cacheMeta{NChunks: len(chunks), Dim: dim, EmbeddingModelID: modelID, CreatedAt: time.Now().UTC()}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, "meta.json"), metaBytes, 0o644); err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("finalize cache dir: %w", err)
	}
	return nil
}

// gcCacheOlderThan removes cache directories under <dataRoot>/rag_cache
// whose modification time is older than cutoff, skipping keep (the
// currently live directory for any session) so an in-flight read never
// has its directory pulled out from under it.
func gcCacheOlderThan(dataRoot string, cutoff time.Time, keep map[string]bool) (int, error) {
	root := filepath.Join(dataRoot, "rag_cache")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || keep[e.Name()] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(root, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
