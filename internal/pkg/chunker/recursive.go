package chunker

import (
	"context"
	"strings"

	"github.com/fedscope/fedscope/internal/model"
)

// defaultSeparators is the boundary priority for recursive splitting:
// paragraph, line, sentence, word, then hard character cuts.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveSplitter splits text into fixed-size windows, preferring natural
// boundaries. Overlap between consecutive chunks is a percentage of the
// chunk size.
type RecursiveSplitter struct {
	chunkSize      int
	overlapPercent int
	separators     []string
}

// NewRecursiveSplitter creates a recursive splitter. chunkSize is measured
// in Unicode characters.
func NewRecursiveSplitter(chunkSize, overlapPercent int) *RecursiveSplitter {
	return &RecursiveSplitter{
		chunkSize:      chunkSize,
		overlapPercent: overlapPercent,
		separators:     defaultSeparators,
	}
}

// Params returns the splitter parameters.
func (s *RecursiveSplitter) Params() Params {
	return Params{
		Method:         MethodRecursive,
		ChunkSize:      s.chunkSize,
		OverlapPercent: s.overlapPercent,
	}
}

// Split chunks each document independently, propagating its metadata to
// every derived chunk.
func (s *RecursiveSplitter) Split(_ context.Context, docs []model.Document) ([]model.Chunk, error) {
	if err := s.Params().Validate(); err != nil {
		return nil, err
	}

	var chunks []model.Chunk
	for _, doc := range docs {
		for _, piece := range s.splitText(doc.Content, s.separators) {
			chunks = append(chunks, model.Chunk{
				Content:  piece,
				Metadata: doc.Metadata,
			})
		}
	}
	return chunks, nil
}

func (s *RecursiveSplitter) overlapChars() int {
	return s.chunkSize * s.overlapPercent / 100
}

// splitText recursively splits text at the highest-priority separator that
// appears in it, then merges the fragments back into chunks of at most
// chunkSize characters with the configured overlap.
func (s *RecursiveSplitter) splitText(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var fragments []string
	for _, piece := range splitWithSeparator(text, separator) {
		if len([]rune(piece)) <= s.chunkSize {
			fragments = append(fragments, piece)
			continue
		}
		if len(remaining) == 0 {
			fragments = append(fragments, hardSplit(piece, s.chunkSize)...)
			continue
		}
		fragments = append(fragments, s.splitText(piece, remaining)...)
	}

	return s.merge(fragments)
}

// merge greedily packs fragments into chunks of at most chunkSize
// characters. When a chunk fills up, trailing fragments totaling at most the
// overlap size carry over into the next chunk.
func (s *RecursiveSplitter) merge(fragments []string) []string {
	overlap := s.overlapChars()

	var chunks []string
	var window []string
	windowLen := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(window, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, frag := range fragments {
		fragLen := len([]rune(frag))
		if windowLen+fragLen > s.chunkSize && windowLen > 0 {
			flush()
			for windowLen > overlap || (windowLen+fragLen > s.chunkSize && windowLen > 0) {
				windowLen -= len([]rune(window[0]))
				window = window[1:]
			}
		}
		window = append(window, frag)
		windowLen += fragLen
	}
	flush()

	return chunks
}

// splitWithSeparator splits text on sep, keeping the separator attached to
// the preceding piece so no characters are lost.
func splitWithSeparator(text, sep string) []string {
	if sep == "" {
		return []string{text}
	}

	parts := strings.Split(text, sep)
	result := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// hardSplit cuts text into chunkSize-character pieces with no regard for
// boundaries. Last resort when no separator fits.
func hardSplit(text string, chunkSize int) []string {
	runes := []rune(text)
	var pieces []string
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
