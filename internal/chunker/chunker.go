// Package chunker splits Markdown into API-sized chunks while keeping fenced
// code blocks intact.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// CodeBlockSentinel prefixes code chunks in their tagged string form.
const CodeBlockSentinel = "__CODE_BLOCK__"

const (
	fence              = "```"
	paragraphSeparator = "\n\n"
)

// Segment is a contiguous span of the input, either prose or a fenced code
// block (fence markers included).
type Segment struct {
	Content   string
	CodeBlock bool
}

// Chunk is the unit sent to translation, or passed through untouched when
// CodeBlock is set.
type Chunk struct {
	Text      string
	CodeBlock bool
}

// Tagged renders the chunk as a single string, prefixing code blocks with
// CodeBlockSentinel. It is the form for consumers that pass chunks around as
// plain strings; in-process callers branch on CodeBlock instead.
func (c Chunk) Tagged() string {
	if c.CodeBlock {
		return CodeBlockSentinel + c.Text
	}
	return c.Text
}

// ParseTagged reverses Tagged, stripping the sentinel.
func ParseTagged(s string) Chunk {
	if rest, ok := strings.CutPrefix(s, CodeBlockSentinel); ok {
		return Chunk{Text: rest, CodeBlock: true}
	}
	return Chunk{Text: s}
}

// Options controls chunk sizing.
type Options struct {
	// MaxLength is the byte limit for packed prose chunks.
	MaxLength int
	// MaxParagraphs caps paragraphs per packed chunk; 0 means no cap.
	MaxParagraphs int
}

// Split chunks text so that prose chunks stay within maxLength bytes.
func Split(text string, maxLength int) []Chunk {
	return SplitWithOptions(text, Options{MaxLength: maxLength})
}

// SplitWithOptions is Split with an optional paragraph cap.
func SplitWithOptions(text string, opts Options) []Chunk {
	if opts.MaxLength <= 0 || len(text) <= opts.MaxLength {
		return []Chunk{{Text: text}}
	}

	var chunks []Chunk
	for _, seg := range Segments(text) {
		if seg.CodeBlock {
			chunks = append(chunks, Chunk{Text: seg.Content, CodeBlock: true})
			continue
		}
		chunks = append(chunks, packParagraphs(seg.Content, opts)...)
	}
	if len(chunks) == 0 {
		return []Chunk{{Text: text}}
	}
	return chunks
}

// Segments partitions text into prose and code-block spans. Concatenating
// the contents in order yields text exactly.
func Segments(text string) []Segment {
	var segments []Segment
	last := 0
	for _, sp := range findCodeSpans(text) {
		if sp.start > last {
			segments = append(segments, Segment{Content: text[last:sp.start]})
		}
		segments = append(segments, Segment{Content: text[sp.start:sp.end], CodeBlock: true})
		last = sp.end
	}
	if last < len(text) || len(segments) == 0 {
		segments = append(segments, Segment{Content: text[last:]})
	}
	return segments
}

type span struct {
	start, end int
}

// findCodeSpans scans line by line. A line starting with a fence opens a
// block unless the rest of the line closes it again, in which case the line
// only carries inline fence-delimited spans. The block ends at the next line
// starting with at least as many backticks as the opener, or at EOF.
func findCodeSpans(text string) []span {
	var spans []span
	open, openRun := -1, 0
	for pos := 0; pos < len(text); {
		lineEnd, next := len(text), len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			lineEnd = pos + nl
			next = lineEnd + 1
		}
		line := strings.TrimSuffix(text[pos:lineEnd], "\r")

		switch run := backtickRun(line); {
		case open >= 0:
			if run >= openRun {
				spans = append(spans, span{start: open, end: pos + len(line)})
				open = -1
			}
		case run >= len(fence) && !strings.Contains(line[run:], fence):
			open, openRun = pos, run
		default:
			spans = append(spans, inlineSpans(line, pos)...)
		}
		pos = next
	}
	if open >= 0 {
		spans = append(spans, span{start: open, end: len(text)})
	}
	return spans
}

// backtickRun counts the leading backticks of line.
func backtickRun(line string) int {
	n := 0
	for n < len(line) && line[n] == '`' {
		n++
	}
	return n
}

func inlineSpans(line string, base int) []span {
	var spans []span
	for i := 0; ; {
		open := strings.Index(line[i:], fence)
		if open < 0 {
			return spans
		}
		open += i
		closeAt := strings.Index(line[open+len(fence):], fence)
		if closeAt < 0 {
			return spans
		}
		end := open + len(fence) + closeAt + len(fence)
		spans = append(spans, span{start: base + open, end: base + end})
		i = end
	}
}

// paragraphs splits on whitespace-only lines and trims each paragraph.
func paragraphs(text string) []string {
	var out []string
	start := 0
	for pos := 0; pos < len(text); {
		lineEnd, next := len(text), len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			lineEnd = pos + nl
			next = lineEnd + 1
		}
		if strings.TrimSpace(text[pos:lineEnd]) == "" {
			if p := strings.TrimSpace(text[start:pos]); p != "" {
				out = append(out, p)
			}
			start = next
		}
		pos = next
	}
	if start < len(text) {
		if p := strings.TrimSpace(text[start:]); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func packParagraphs(text string, opts Options) []Chunk {
	var chunks []Chunk
	var group []string
	groupLen := 0

	flush := func() {
		if len(group) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Text: strings.Join(group, paragraphSeparator)})
		group = nil
		groupLen = 0
	}

	for _, p := range paragraphs(text) {
		if len(p) > opts.MaxLength {
			flush()
			for _, part := range forceSplit(p, opts.MaxLength) {
				chunks = append(chunks, Chunk{Text: part})
			}
			continue
		}

		candidate := len(p)
		if len(group) > 0 {
			candidate = groupLen + len(paragraphSeparator) + len(p)
		}
		if candidate > opts.MaxLength || (opts.MaxParagraphs > 0 && len(group) >= opts.MaxParagraphs) {
			flush()
			candidate = len(p)
		}
		group = append(group, p)
		groupLen = candidate
	}
	flush()
	return chunks
}

// forceSplit cuts an oversized paragraph into trimmed, non-empty parts of
// at most maxLength bytes each.
func forceSplit(paragraph string, maxLength int) []string {
	var parts []string
	for start := 0; start < len(paragraph); {
		cut := len(paragraph)
		if end := start + maxLength; end < len(paragraph) {
			cut = findCut(paragraph, start, end, maxLength)
		}
		if part := strings.TrimSpace(paragraph[start:cut]); part != "" {
			parts = append(parts, part)
		}
		start = cut
	}
	return parts
}

// findCut prefers the last sentence terminator, then the last whitespace,
// in the back half of the window [start, end); otherwise it cuts hard.
func findCut(s string, start, end, maxLength int) int {
	floor := start + maxLength/2
	if cut := lastCutAfter(s, end, floor, isSentenceEnd); cut > 0 {
		return cut
	}
	if cut := lastCutAfter(s, end, floor, unicode.IsSpace); cut > 0 {
		return cut
	}
	return hardCut(s, start, end)
}

// lastCutAfter returns the offset just past the last rune in s[floor:end]
// matching pred, or 0.
func lastCutAfter(s string, end, floor int, pred func(rune) bool) int {
	for pos := end; pos > floor; {
		r, size := utf8.DecodeLastRuneInString(s[floor:pos])
		if size == 0 {
			break
		}
		if r != utf8.RuneError && pred(r) {
			return pos
		}
		pos -= size
	}
	return 0
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// hardCut returns the furthest grapheme boundary not past end. A single
// cluster wider than the window falls back to a rune boundary.
func hardCut(s string, start, end int) int {
	limit := end - start
	width := 0
	rest := s[start:]
	state := -1
	for len(rest) > 0 {
		cluster, next, _, newState := uniseg.FirstGraphemeClusterInString(rest, state)
		if width+len(cluster) > limit {
			break
		}
		width += len(cluster)
		rest, state = next, newState
	}
	if width > 0 {
		return start + width
	}

	cut := end
	for cut > start && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == start {
		_, size := utf8.DecodeRuneInString(s[start:])
		cut = start + size
	}
	return cut
}
