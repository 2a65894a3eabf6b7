package chunking

import "strings"

const sentenceLookback = 100

// Splitter cuts text into overlapping windows of ChunkSize runes, preferring
// to end a window right after a sentence terminator.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		return []string{strings.TrimSpace(text)}
	}

	out := make([]string, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end < len(runes) {
			end = sentenceCut(runes, start, end)
		} else {
			end = len(runes)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
		start = max(start+1, end-s.Overlap)
	}
	return out
}

// sentenceCut moves end back to just after the nearest '.', '!' or '?' within
// the lookback window, or leaves it unchanged.
func sentenceCut(runes []rune, start, end int) int {
	floor := max(start+1, end-sentenceLookback)
	for i := end - 1; i >= floor; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return end
}
