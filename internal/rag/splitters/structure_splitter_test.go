package splitters

import (
	"context"
	"strings"
	"testing"

	"HealthAgent/internal/rag/schema"
)

func TestSplitParagraphBoundaries(t *testing.T) {
	s := NewStructureSplitter(50)
	doc := &schema.Document{
		Path:     "/tmp/a.txt",
		Language: "english",
		Text:     "first paragraph about diet\n\nsecond paragraph about exercise and sleep habits\n\nthird one",
	}

	segs, err := s.Split(context.Background(), []*schema.Document{doc})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(segs) == 0 {
		t.Fatal("expected segments, got none")
	}

	for i, seg := range segs {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if seg.DocPath != doc.Path {
			t.Errorf("segment %d has doc path %q", i, seg.DocPath)
		}
		if seg.Metadata[schema.MetadataKeyLanguage] != "english" {
			t.Errorf("segment %d missing language metadata", i)
		}
	}
}

func TestSplitOverlongParagraphIsWrapped(t *testing.T) {
	s := NewStructureSplitter(100)
	long := strings.Repeat("高血压患者应注意低盐饮食。", 60)
	doc := &schema.Document{Path: "/tmp/b.txt", Text: long}

	segs, err := s.Split(context.Background(), []*schema.Document{doc})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("expected long paragraph to be wrapped, got %d segments", len(segs))
	}
	for i, seg := range segs {
		if n := len([]rune(seg.Text)); n > 100 {
			t.Errorf("segment %d has %d runes, exceeds target", i, n)
		}
	}

	// No content may be lost by wrapping.
	var total int
	for _, seg := range segs {
		total += len([]rune(seg.Text))
	}
	if want := len([]rune(long)); total != want {
		t.Errorf("wrapped segments hold %d runes, source has %d", total, want)
	}
}

func TestSplitHeadingStartsNewBlock(t *testing.T) {
	s := NewStructureSplitter(400)
	doc := &schema.Document{
		Path: "/tmp/c.md",
		Text: "# 健康指南\n饮食建议内容\n# 运动指南\n运动建议内容",
	}

	segs, err := s.Split(context.Background(), []*schema.Document{doc})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(segs) != 1 {
		// Small blocks pack into one segment; the headings must survive inside it.
		t.Fatalf("expected 1 packed segment, got %d", len(segs))
	}
	if !strings.Contains(segs[0].Text, "# 健康指南") || !strings.Contains(segs[0].Text, "# 运动指南") {
		t.Errorf("headings missing from packed segment: %q", segs[0].Text)
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	s := NewStructureSplitter(400)
	segs, err := s.Split(context.Background(), []*schema.Document{{Path: "/tmp/empty.txt", Text: "  \n\n "}})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(segs) != 0 {
		t.Errorf("expected no segments for blank document, got %d", len(segs))
	}
}
