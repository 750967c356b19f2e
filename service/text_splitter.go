package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"lawcite-backend/models"
)

// ErrInvalidChunkSize is returned for a chunk size or overlap the splitter cannot honor
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// defaultSeparators are tried in order; "" means a hard cut between runes
var defaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// TextSplitter recursively splits text on progressively finer separators until every
// span fits in chunkSize runes. Separators stay attached to the end of the piece they
// terminate, so no text is lost.
type TextSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewTextSplitter creates a splitter producing spans of at most size runes sharing up to
// overlap runes with their predecessor
func NewTextSplitter(size, overlap int) (*TextSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunkSize, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunkSize, overlap, size)
	}
	return &TextSplitter{
		chunkSize:    size,
		chunkOverlap: overlap,
		separators:   defaultSeparators,
	}, nil
}

// SplitDocuments splits every document, copying its metadata to each chunk
func (s *TextSplitter) SplitDocuments(docs []models.LawDocument) []models.LawChunk {
	var chunks []models.LawChunk
	for _, doc := range docs {
		for i, text := range s.SplitText(doc.Content) {
			chunks = append(chunks, models.LawChunk{
				Text:       text,
				ChunkIndex: i,
				Metadata:   doc.Metadata,
			})
		}
	}
	return chunks
}

// SplitText splits a single text. Whitespace-only spans are dropped.
func (s *TextSplitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *TextSplitter) split(text string, separators []string) []string {
	separator := ""
	var finer []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			separator = candidate
			finer = separators[i+1:]
			break
		}
	}

	var out, fitting []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if utf8.RuneCountInString(piece) <= s.chunkSize {
			fitting = append(fitting, piece)
			continue
		}

		if len(fitting) > 0 {
			out = append(out, s.merge(fitting)...)
			fitting = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
			continue
		}
		out = append(out, s.split(piece, finer)...)
	}

	if len(fitting) > 0 {
		out = append(out, s.merge(fitting)...)
	}
	return out
}

// merge packs pieces into spans of at most chunkSize runes, carrying trailing pieces
// totalling at most chunkOverlap runes into the next span
func (s *TextSplitter) merge(pieces []string) []string {
	var spans, current []string
	total := 0

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			spans = appendNonBlank(spans, strings.Join(current, ""))
			for total > s.chunkOverlap || (total+n > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	return appendNonBlank(spans, strings.Join(current, ""))
}

func appendNonBlank(spans []string, span string) []string {
	if strings.TrimSpace(span) == "" {
		return spans
	}
	return append(spans, span)
}

func splitKeepingSeparator(text, separator string) []string {
	if text == "" {
		return nil
	}
	if separator == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	pieces := strings.SplitAfter(text, separator)
	if pieces[len(pieces)-1] == "" {
		pieces = pieces[:len(pieces)-1]
	}
	return pieces
}
