package index

import "strings"

// Chunk is a single piece of chunked context text, retaining provenance
// back to the RuleContextRow it came from.
type Chunk struct {
	ChunkID      int
	Text         string
	SourceRowID  int64
	Offset       int
}

// chunkText splits text into non-empty, trimmed chunks on blank-line
// groups, per SPEC_FULL.md §4.3's chunking rule. Grounded on the
// paragraph-boundary handling in intelligencedev-manifold's
// internal/rag/chunker (markdownChunk's "flush on blank line"
// behavior), simplified to the spec's single fixed strategy: no
// target-size heuristics, just a blank-line-group splitter.
func chunkText(text string, sourceRowID int64) []Chunk {
	lines := strings.Split(text, "\n")
	var out []Chunk
	var buf strings.Builder
	offset := 0
	groupStart := 0

	flush := func(start int) {
		s := strings.TrimSpace(buf.String())
		if s != "" {
			out = append(out, Chunk{Text: s, SourceRowID: sourceRowID, Offset: start})
		}
		buf.Reset()
	}

	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			if buf.Len() > 0 {
				flush(groupStart)
			}
			offset += len(ln) + 1
			groupStart = offset
			continue
		}
		if buf.Len() == 0 {
			groupStart = offset
		} else {
			buf.WriteString("\n")
		}
		buf.WriteString(ln)
		offset += len(ln) + 1
	}
	flush(groupStart)

	for i := range out {
		out[i].ChunkID = i
	}
	return out
}
