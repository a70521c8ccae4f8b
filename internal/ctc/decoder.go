// Package ctc implements greedy decoding for CTC acoustic model output:
// per-timestep symbol IDs are collapsed (consecutive duplicates merged,
// blanks dropped) and rendered through the model vocabulary.
package ctc

import (
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Collapse performs the greedy CTC reduction in one left-to-right pass.
// A symbol is emitted when it is neither the blank nor a repeat of the
// immediately preceding timestep; the previous ID is tracked across blanks
// and suppressed symbols, which is what lets the same symbol reappear after
// an intervening blank.
func Collapse(ids []int, blankID int) []int {
	collapsed := make([]int, 0, len(ids))
	prev := -1
	if blankID == -1 {
		prev = -2
	}
	for _, id := range ids {
		if id != blankID && id != prev {
			collapsed = append(collapsed, id)
		}
		prev = id
	}
	return collapsed
}

// Decode turns a per-timestep symbol ID sequence into cleaned text.
// Empty and all-blank inputs yield the empty string.
func Decode(ids []int, vocab Vocabulary) string {
	return Clean(vocab.Render(Collapse(ids, vocab.BlankID())))
}

// Clean strips tag-like artifacts such as <pad> or <unk>, collapses
// whitespace runs, and trims the result.
func Clean(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
