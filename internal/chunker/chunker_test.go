package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func joinSegments(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Content)
	}
	return b.String()
}

func TestSegments_ReconstructsInput(t *testing.T) {
	inputs := []string{
		"",
		"plain text only",
		"intro\n\n```go\nfmt.Println(1)\n```\n\noutro",
		"```\nunterminated\ncode",
		"windows\r\n```sh\r\nls\r\n```\r\nmore\r\n",
		"text ```code``` more text",
		"a ```x``` b ```y``` c",
		"\n\n\n   \n",
		"```python\nprint('hi')\n```",
		"# Title\n\n```\n\n\n```\n\n日本語の文章。",
	}
	for _, in := range inputs {
		segments := Segments(in)
		if len(segments) == 0 {
			t.Fatalf("Segments(%q) returned no segments", in)
		}
		if got := joinSegments(segments); got != in {
			t.Fatalf("Segments(%q) reconstructs %q", in, got)
		}
	}
}

func TestSegments_DetectsFencedBlocks(t *testing.T) {
	in := "intro\n```go\ncode()\n```\noutro"
	want := []Segment{
		{Content: "intro\n"},
		{Content: "```go\ncode()\n```", CodeBlock: true},
		{Content: "\noutro"},
	}
	if got := Segments(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("Segments() = %#v, want %#v", got, want)
	}
}

func TestSegments_UnterminatedFenceRunsToEOF(t *testing.T) {
	in := "before\n```\nnever closed\n\nstill code"
	got := Segments(in)
	if len(got) != 2 || !got[1].CodeBlock || got[1].Content != "```\nnever closed\n\nstill code" {
		t.Fatalf("unexpected segments: %#v", got)
	}
}

func TestSegments_FenceOpeners(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code string
	}{
		{"FourBackticks", "intro\n````markdown\nInner text.\n````\noutro", "````markdown\nInner text.\n````"},
		{"BareFourBackticks", "intro\n````\nx\n````\noutro", "````\nx\n````"},
		{"SingleBackticksInInfo", "intro\n```js title=`a.js`\nrun()\n```\noutro", "```js title=`a.js`\nrun()\n```"},
		{"ShorterFenceInside", "intro\n````md\n```go\nx := 1\n```\n````\noutro", "````md\n```go\nx := 1\n```\n````"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segments(tt.in)
			if len(got) != 3 || !got[1].CodeBlock || got[1].Content != tt.code {
				t.Fatalf("Segments(%q) = %#v", tt.in, got)
			}
			if joinSegments(got) != tt.in {
				t.Fatalf("segments do not reconstruct the input")
			}
		})
	}
}

func TestSplit_NestedFenceStaysOneCodeChunk(t *testing.T) {
	prose := strings.Repeat("Some prose sentence here. ", 4)
	block := "````markdown\nInner text to keep.\n```go\nx := 1\n```\n````"
	chunks := Split(prose+"\n\n"+block+"\n\n"+prose, 120)

	var code []string
	for _, c := range chunks {
		if c.CodeBlock {
			code = append(code, c.Text)
			continue
		}
		if strings.Contains(c.Text, "`") || strings.Contains(c.Text, "Inner text") {
			t.Fatalf("fenced content leaked into a prose chunk: %q", c.Text)
		}
	}
	if len(code) != 1 || code[0] != block {
		t.Fatalf("expected the whole block as one code chunk, got %q", code)
	}
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	got := Split("Hello", 3000)
	if len(got) != 1 || got[0].Text != "Hello" || got[0].CodeBlock {
		t.Fatalf("Split() = %#v", got)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	got := Split("", 10)
	if len(got) != 1 || got[0].Text != "" {
		t.Fatalf("Split(\"\") = %#v", got)
	}
}

func TestSplit_InlineCodeExample(t *testing.T) {
	got := Split("text ```code``` more text", 10)
	want := []Chunk{
		{Text: "text"},
		{Text: "```code```", CodeBlock: true},
		{Text: "more text"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split() = %#v, want %#v", got, want)
	}
}

func TestSplit_PacksParagraphsGreedily(t *testing.T) {
	in := "aaa\n\nbbb\n\nccc\n\n\n\nddddddd"
	got := Split(in, 8)
	want := []Chunk{
		{Text: "aaa\n\nbbb"},
		{Text: "ccc"},
		{Text: "ddddddd"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split() = %#v, want %#v", got, want)
	}
}

func TestSplitWithOptions_ParagraphCap(t *testing.T) {
	in := "a\n\nb\n\nc\n\nd\n\ne"
	got := SplitWithOptions(in, Options{MaxLength: 10, MaxParagraphs: 2})
	want := []Chunk{
		{Text: "a\n\nb"},
		{Text: "c\n\nd"},
		{Text: "e"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitWithOptions() = %#v, want %#v", got, want)
	}
}

func TestSplit_LengthBound(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString(strings.Repeat("word ", i%9+1))
		b.WriteString("end.\n\n")
	}
	in := b.String()
	const max = 40
	for _, c := range Split(in, max) {
		if c.CodeBlock {
			continue
		}
		if len(c.Text) > max {
			t.Fatalf("chunk exceeds %d bytes: %q", max, c.Text)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Fatalf("empty chunk emitted")
		}
	}
}

func TestSplit_ForceSplitsOversizedParagraph(t *testing.T) {
	sentence := "This is a sentence that keeps going. "
	para := strings.Repeat(sentence, 5000/len(sentence)+1)[:5000]
	in := "intro paragraph\n\n" + para
	chunks := Split(in, 3000)

	var parts []Chunk
	for _, c := range chunks {
		if c.Text != "intro paragraph" {
			parts = append(parts, c)
		}
	}
	if len(parts) < 2 {
		t.Fatalf("expected oversized paragraph to be split, got %d parts", len(parts))
	}
	for _, p := range parts {
		if len(p.Text) > 3000 {
			t.Fatalf("sub-chunk too long: %d", len(p.Text))
		}
		if strings.TrimSpace(p.Text) == "" || p.Text != strings.TrimSpace(p.Text) {
			t.Fatalf("sub-chunk not trimmed or empty: %q", p.Text)
		}
	}
	if !strings.HasSuffix(parts[0].Text, ".") {
		t.Fatalf("expected cut at sentence terminator, got ...%q", parts[0].Text[len(parts[0].Text)-10:])
	}
}

func TestForceSplit_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want []string
	}{
		{
			name: "SentenceEnd",
			in:   "First sentence. Second sentence goes on",
			max:  20,
			want: []string{"First sentence.", "Second sentence", "goes on"},
		},
		{
			name: "TerminatorInFrontHalfIgnored",
			in:   "A. " + strings.Repeat("b", 25),
			max:  10,
			want: []string{"A. bbbbbbb", "bbbbbbbbbb", "bbbbbbbb"},
		},
		{
			name: "HardCut",
			in:   strings.Repeat("x", 25),
			max:  10,
			want: []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)},
		},
		{
			name: "CJKTerminator",
			in:   "一二三。四五六七八九",
			max:  15,
			want: []string{"一二三。", "四五六七八", "九"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := forceSplit(tt.in, tt.max); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("forceSplit() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestForceSplit_NeverBreaksRunes(t *testing.T) {
	in := strings.Repeat("日本語", 20)
	for _, part := range forceSplit(in, 10) {
		if !utf8.ValidString(part) {
			t.Fatalf("invalid UTF-8 part: %q", part)
		}
		if len(part) > 10 {
			t.Fatalf("part exceeds limit: %d", len(part))
		}
	}
	if got := strings.Join(forceSplit(in, 10), ""); got != in {
		t.Fatalf("parts do not reassemble the input")
	}
}

func TestSplit_CodeBlockIsAtomic(t *testing.T) {
	code := "```go\n" + strings.Repeat("fmt.Println(\"long line of code\")\n\n", 50) + "```"
	in := "Intro text here.\n\n" + code + "\n\nOutro text."
	chunks := Split(in, 50)

	var codeChunks []Chunk
	for _, c := range chunks {
		if c.CodeBlock {
			codeChunks = append(codeChunks, c)
		}
	}
	if len(codeChunks) != 1 || codeChunks[0].Text != code {
		t.Fatalf("expected the code block as one verbatim chunk, got %d code chunks", len(codeChunks))
	}
}

func TestSplit_OnlyOversizedCodeBlock(t *testing.T) {
	code := "```\n" + strings.Repeat("x = 1\n", 100) + "```"
	chunks := Split(code, 20)
	if len(chunks) != 1 || !chunks[0].CodeBlock || chunks[0].Text != code {
		t.Fatalf("expected single code chunk, got %#v", chunks)
	}
}

func TestSplit_WhitespaceOnlyFallsBackToInput(t *testing.T) {
	in := strings.Repeat(" \n\n\t", 10)
	chunks := Split(in, 5)
	if len(chunks) != 1 || chunks[0].Text != in {
		t.Fatalf("expected original text as the only chunk, got %#v", chunks)
	}
}

func TestTagged_RoundTrip(t *testing.T) {
	code := Chunk{Text: "```x```", CodeBlock: true}
	if got := code.Tagged(); got != CodeBlockSentinel+"```x```" {
		t.Fatalf("Tagged() = %q", got)
	}
	if got := ParseTagged(code.Tagged()); got != code {
		t.Fatalf("ParseTagged() = %#v", got)
	}
	prose := Chunk{Text: "hello"}
	if got := ParseTagged(prose.Tagged()); got != prose {
		t.Fatalf("ParseTagged() = %#v", got)
	}
}
