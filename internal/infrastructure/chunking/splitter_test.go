package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmpty(t *testing.T) {
	if got := NewSplitter(10, 2).Split("   \n "); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	got := NewSplitter(100, 10).Split("  total due: 42  ")
	if len(got) != 1 || got[0] != "total due: 42" {
		t.Fatalf("unexpected chunks %q", got)
	}
}

func TestSplitKeepsWordsIntact(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	got := NewSplitter(12, 0).Split(text)
	if len(got) < 2 {
		t.Fatalf("expected several chunks, got %q", got)
	}
	for _, chunk := range got {
		if utf8.RuneCountInString(chunk) > 12 {
			t.Fatalf("chunk %q exceeds size", chunk)
		}
		for _, word := range strings.Fields(chunk) {
			if !strings.Contains(text, " "+word+" ") && !strings.HasPrefix(text, word+" ") && !strings.HasSuffix(text, " "+word) {
				t.Fatalf("chunk %q splits a word", chunk)
			}
		}
	}
	if strings.Join(got, " ") != text {
		t.Fatalf("chunks do not reassemble: %q", got)
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	text := "first paragraph here\n\nsecond one"
	got := NewSplitter(26, 0).Split(text)
	if len(got) != 2 || got[0] != "first paragraph here" || got[1] != "second one" {
		t.Fatalf("unexpected chunks %q", got)
	}
}

func TestSplitHardCutsWithoutWhitespace(t *testing.T) {
	got := NewSplitter(4, 1).Split("abcdefghij")
	want := []string{"abcd", "defg", "ghij"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNewSplitterClampsOverlap(t *testing.T) {
	s := NewSplitter(8, 20)
	if s.Overlap != 2 {
		t.Fatalf("expected overlap clamped to 2, got %d", s.Overlap)
	}
	if d := NewSplitter(0, -1); d.ChunkSize != 900 || d.Overlap != 0 {
		t.Fatalf("unexpected defaults %+v", d)
	}
}
