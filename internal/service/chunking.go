package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how parsed document text is split before embedding.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig splits into ~1200 character windows with 200 characters
// of overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1200,
		MinChars:  400,
		Overlap:   200,
		MaxChunks: 200,
	}
}

// SplitText cuts text into overlapping windows, preferring whitespace
// boundaries past MinChars. Returns nil for blank text.
func SplitText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	var chunks []string
	for start := 0; start < len(runes); {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := min(start+cfg.MaxChars, len(runes))
		if end < len(runes) {
			end = lastSpaceBefore(runes, start, end, cfg.MinChars)
		}
		if end <= start {
			break
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}

		next := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			next = end - cfg.Overlap
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// lastSpaceBefore returns the cut point just after the last whitespace in
// runes[start+minChars:end], or end if there is none.
func lastSpaceBefore(runes []rune, start, end, minChars int) int {
	floor := start + minChars
	if floor > end {
		floor = start
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
