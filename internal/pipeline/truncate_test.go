package pipeline

import (
	"strings"
	"testing"

	"github.com/ppetrov/pairbench/internal/model"
)

func TestSmartTruncate_ShortTextUntouched(t *testing.T) {
	text := "short paper text"
	got, strategy := SmartTruncate(text, 100)
	if got != text || strategy != model.TruncationNone {
		t.Errorf("got (%q, %q), want unchanged text with no truncation", got, strategy)
	}
}

func TestSmartTruncate_KeepsHeadAndTail(t *testing.T) {
	head := strings.Repeat("H", 500)
	tail := strings.Repeat("T", 500)
	text := head + strings.Repeat("M", 5000) + tail

	got, strategy := SmartTruncate(text, 1000)
	if strategy != model.TruncationHeadTail {
		t.Fatalf("strategy = %q, want head_tail", strategy)
	}
	if !strings.Contains(got, "[...TRUNCATED...]") {
		t.Error("missing truncation marker")
	}
	if !strings.HasPrefix(got, "HHHH") {
		t.Error("head not preserved")
	}
	if !strings.HasSuffix(got, "TTTT") {
		t.Error("tail not preserved")
	}
	// 60% head, 40% tail of the budget
	if !strings.Contains(got, strings.Repeat("H", 500)) {
		t.Error("expected full head within 60% budget")
	}
	if !strings.Contains(got, strings.Repeat("T", 400)) {
		t.Error("expected 400 chars of tail within 40% budget")
	}
}

func TestSmartTruncate_ExactBoundary(t *testing.T) {
	text := strings.Repeat("x", 100)
	got, strategy := SmartTruncate(text, 100)
	if got != text || strategy != model.TruncationNone {
		t.Errorf("text at exactly maxChars must not be truncated")
	}
}

func TestSmartTruncate_ZeroBudgetDisables(t *testing.T) {
	text := strings.Repeat("x", 100)
	got, strategy := SmartTruncate(text, 0)
	if got != text || strategy != model.TruncationNone {
		t.Errorf("zero budget must disable truncation")
	}
}

func TestTruncateHead(t *testing.T) {
	text := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	got := TruncateHead(text, 50)
	if !strings.HasPrefix(got, strings.Repeat("a", 50)) {
		t.Error("head not preserved")
	}
	if strings.Contains(got, "b") {
		t.Error("tail should be dropped")
	}
	if !strings.HasSuffix(got, "[...TRUNCATED...]") {
		t.Error("missing truncation marker")
	}

	if got := TruncateHead("short", 50); got != "short" {
		t.Errorf("short text changed: %q", got)
	}
}
