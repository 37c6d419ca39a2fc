// Package chunk splits document text into bounded, overlapping chunks
// aligned to paragraph and page boundaries.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/corpus"
)

var _ corpus.Chunker = (*Splitter)(nil)

// Default sizes in characters.
const (
	DefaultMaxChunkChars = 1200
	DefaultOverlapChars  = 200
	DefaultMinChunkChars = 200
)

// paragraphSep joins paragraphs inside a chunk.
const paragraphSep = "\n\n"

var (
	blankLineRe = regexp.MustCompile(`\n\s*\n`)
	spaceRunRe  = regexp.MustCompile(`[ \t]+`)
)

// Splitter is a greedy paragraph packer.
type Splitter struct {
	maxChars     int
	overlapChars int
	minChars     int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMaxChunkChars sets the size above which text is split.
func WithMaxChunkChars(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithOverlapChars sets how many trailing characters of a closed chunk
// seed the next one.
func WithOverlapChars(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlapChars = n
		}
	}
}

// WithMinChunkChars sets the size a chunk must reach before it may be
// closed.
func WithMinChunkChars(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.minChars = n
		}
	}
}

// NewSplitter creates a Splitter with the given options.
func NewSplitter(opts ...Option) *Splitter {
	s := &Splitter{
		maxChars:     DefaultMaxChunkChars,
		overlapChars: DefaultOverlapChars,
		minChars:     DefaultMinChunkChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxChunkChars returns the configured maximum chunk size.
func (s *Splitter) MaxChunkChars() int { return s.maxChars }

// OverlapChars returns the configured overlap size.
func (s *Splitter) OverlapChars() int { return s.overlapChars }

// Chunk splits text into chunks with IDs derived from docID.
//
// Text no longer than the maximum yields a single chunk of the trimmed
// text. Sizes are otherwise measured on normalized paragraphs, where
// runs of spaces and blank lines count once: text that only exceeds the
// maximum through such runs yields a single chunk of its normalized
// form. Longer text is packed paragraph by paragraph. A chunk is closed
// when the next paragraph would overflow it and it holds at least the
// minimum size; the next chunk starts with the tail of the closed one.
// Page break lines always start a new chunk and are never overlapped
// across. A paragraph longer than the maximum becomes a chunk of its own.
// Every chunk except such a paragraph stays within max+overlap characters.
func (s *Splitter) Chunk(text, docID string) []*corpus.Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= s.maxChars {
		return []*corpus.Chunk{newChunk(docID, 0, trimmed)}
	}

	paras := splitParagraphs(trimmed)
	if normalizedLength(paras) <= s.maxChars {
		texts := make([]string, len(paras))
		for i, p := range paras {
			texts[i] = p.text
		}
		return []*corpus.Chunk{newChunk(docID, 0, strings.Join(texts, paragraphSep))}
	}

	texts := s.pack(paras)
	chunks := make([]*corpus.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = newChunk(docID, i, t)
	}
	return chunks
}

// Texts returns only the chunk texts of text.
func (s *Splitter) Texts(text string) []string {
	chunks := s.Chunk(text, "")
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

type paragraph struct {
	text      string
	length    int
	pageBreak bool
}

func (s *Splitter) pack(paras []paragraph) []string {
	var (
		out        []string
		buf        []string
		bufLen     int
		bufContent bool
	)
	sepLen := utf8.RuneCountInString(paragraphSep)
	limit := s.maxChars + s.overlapChars

	flush := func() string {
		joined := strings.TrimSpace(strings.Join(buf, paragraphSep))
		if joined != "" && bufContent {
			out = append(out, joined)
		} else {
			joined = ""
		}
		buf, bufLen, bufContent = nil, 0, false
		return joined
	}
	add := func(text string, length int, content bool) {
		if len(buf) > 0 {
			bufLen += sepLen
		}
		buf = append(buf, text)
		bufLen += length
		bufContent = bufContent || content
	}

	for _, p := range paras {
		switch {
		case p.pageBreak:
			flush()
			add(p.text, p.length, false)
			continue
		case p.length > s.maxChars:
			flush()
			out = append(out, p.text)
			continue
		case len(buf) == 0:
			add(p.text, p.length, true)
			continue
		}

		next := bufLen + sepLen + p.length
		if next <= s.maxChars || (bufLen < s.minChars && next <= limit) {
			add(p.text, p.length, true)
			continue
		}

		closed := flush()
		if tail := overlapTail(closed, min(s.overlapChars, limit-sepLen-p.length)); tail != "" {
			add(tail, utf8.RuneCountInString(tail), true)
		}
		add(p.text, p.length, true)
	}
	flush()

	return out
}

// normalizedLength is the length of paras joined by paragraphSep.
func normalizedLength(paras []paragraph) int {
	n := 0
	for i, p := range paras {
		if i > 0 {
			n += utf8.RuneCountInString(paragraphSep)
		}
		n += p.length
	}
	return n
}

// splitParagraphs splits on blank lines and isolates page break lines.
func splitParagraphs(text string) []paragraph {
	var paras []paragraph
	for _, block := range blankLineRe.Split(text, -1) {
		var lines []string
		emit := func() {
			p := spaceRunRe.ReplaceAllString(strings.TrimSpace(strings.Join(lines, "\n")), " ")
			if p != "" {
				paras = append(paras, paragraph{text: p, length: utf8.RuneCountInString(p)})
			}
			lines = lines[:0]
		}
		for _, line := range strings.Split(block, "\n") {
			if corpus.IsPageBreak(line) {
				emit()
				marker := strings.TrimSpace(line)
				paras = append(paras, paragraph{text: marker, length: utf8.RuneCountInString(marker), pageBreak: true})
				continue
			}
			lines = append(lines, line)
		}
		emit()
	}
	return paras
}

// overlapTail returns the last n characters of text.
func overlapTail(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return strings.TrimSpace(string(runes))
}

func newChunk(docID string, index int, text string) *corpus.Chunk {
	return &corpus.Chunk{
		ID:         corpus.ChunkID(docID, index),
		ParentID:   docID,
		Index:      index,
		Text:       text,
		CharLength: utf8.RuneCountInString(text),
	}
}
