// Package textproc provides text cleaning and chunking for the ingestion
// pipeline. Chunking is character-window based with configurable overlap so
// that sentence boundaries crossing a window edge survive in the next chunk.
package textproc

import (
	"regexp"
	"strconv"
	"strings"
)

// Defaults for the chunking window.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Keep word characters and common punctuation, drop the rest.
	specialsRe = regexp.MustCompile(`[^\w\s.,!?;:\-()\[\]{}]`)
)

// Clean normalizes whitespace and strips control/special characters.
func Clean(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialsRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Splitter cuts cleaned text into overlapping chunks.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter creates a Splitter. Non-positive size falls back to the
// default; overlap is clamped below size.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split cuts text into chunks of at most chunkSize runes, each sharing
// chunkOverlap runes with its predecessor. Empty chunks are dropped.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.chunkOverlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)

	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// ChunkSize returns the configured window size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the configured window overlap.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Metadata describes a preprocessed document.
func (s *Splitter) Metadata(text, source string) map[string]string {
	return map[string]string{
		"source":     source,
		"length":     strconv.Itoa(len(text)),
		"word_count": strconv.Itoa(len(strings.Fields(text))),
	}
}

// Preprocessed is the result of cleaning and chunking one document.
type Preprocessed struct {
	CleanText string
	Chunks    []string
	Metadata  map[string]string
}

// Preprocess cleans the raw text, splits it and derives metadata.
func (s *Splitter) Preprocess(text, source string) Preprocessed {
	clean := Clean(text)
	chunks := s.Split(clean)
	return Preprocessed{
		CleanText: clean,
		Chunks:    chunks,
		Metadata:  s.Metadata(clean, source),
	}
}
