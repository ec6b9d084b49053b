package pipeline

import (
	"strings"

	"github.com/ppetrov/pairbench/internal/model"
)

const truncationMarker = "\n\n[...TRUNCATED...]\n\n"

// SmartTruncate fits text into maxChars keeping both the early part (title,
// abstract, method) and the late part (experiments, conclusion): 60% head
// plus 40% tail joined by a marker.
func SmartTruncate(text string, maxChars int) (string, model.TruncationStrategy) {
	if maxChars <= 0 || len(text) <= maxChars {
		return text, model.TruncationNone
	}

	headLen := maxChars * 6 / 10
	tailLen := maxChars - headLen

	head := strings.TrimRight(text[:headLen], " \t\n")
	tail := strings.TrimLeft(text[len(text)-tailLen:], " \t\n")

	return head + truncationMarker + tail, model.TruncationHeadTail
}

// TruncateHead keeps only the leading maxChars, used for judge prompt
// context budgets where the opening of the text matters most
func TruncateHead(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return strings.TrimRight(text[:maxChars], " \t\n") + "\n\n[...TRUNCATED...]"
}
