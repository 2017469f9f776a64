package chunker

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"triage-assistant/pkg"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, runes.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker splits text on the coarsest separator that yields pieces
// no longer than Size runes, then merges neighbouring pieces back into chunks
// that overlap by at most Overlap runes.
type RecursiveChunker struct {
	size       int
	overlap    int
	separators []string
}

// NewRecursiveChunker creates a chunker.  overlap must be smaller than size.
func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be in [0, size)")
	}
	return &RecursiveChunker{size: size, overlap: overlap, separators: DefaultSeparators}, nil
}

// Chunk splits one document.  Whitespace-only documents yield no chunks.
func (c *RecursiveChunker) Chunk(doc pkg.Document) []pkg.Chunk {
	var chunks []pkg.Chunk
	for i, text := range c.Split(doc.Content) {
		chunks = append(chunks, pkg.Chunk{
			DocumentID: doc.ID,
			ChunkID:    doc.ID + ":" + strconv.Itoa(i),
			Text:       text,
			Index:      i,
		})
	}
	return chunks
}

// Split returns the chunk texts of text.
func (c *RecursiveChunker) Split(text string) []string {
	return c.split(text, c.separators)
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	// pick the first separator present in text
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, sep)
	}

	var (
		out  []string
		good []string
	)
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if runeLen(p) <= c.size {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
			continue
		}
		out = append(out, c.split(p, rest)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(good, sep)...)
	}
	return out
}

// merge joins pieces with sep into chunks of at most size runes, carrying a
// tail of at most overlap runes into the next chunk.
func (c *RecursiveChunker) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)
	var (
		out     []string
		current []string
		total   int
	)
	joined := func() int {
		if len(current) == 0 {
			return 0
		}
		return total + sepLen*(len(current)-1)
	}
	for _, p := range pieces {
		n := runeLen(p)
		extra := n
		if len(current) > 0 {
			extra += sepLen
		}
		if len(current) > 0 && joined()+extra > c.size {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				out = append(out, doc)
			}
			// drop from the front until the tail fits the overlap and the
			// next piece fits beside it
			for len(current) > 0 && (joined() > c.overlap || joined()+n+sepLen > c.size) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		out = append(out, doc)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
