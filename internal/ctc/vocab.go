package ctc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// WordDelimiter is the vocabulary entry that renders as a space. CTC
// vocabularies conventionally reserve a pipe for word boundaries so that
// every other fragment can be concatenated verbatim.
const WordDelimiter = "|"

// Vocabulary is the model's fixed mapping from symbol ID to text fragment,
// read-only at inference time.
type Vocabulary struct {
	tokens []string
	blank  int
}

type vocabFile struct {
	BlankID int      `json:"blank_id"`
	Tokens  []string `json:"tokens"`
}

func NewVocabulary(tokens []string, blankID int) (Vocabulary, error) {
	if len(tokens) == 0 {
		return Vocabulary{}, errors.New("vocabulary must not be empty")
	}
	if blankID < 0 || blankID >= len(tokens) {
		return Vocabulary{}, fmt.Errorf("blank id %d out of range for %d tokens", blankID, len(tokens))
	}
	return Vocabulary{tokens: tokens, blank: blankID}, nil
}

// LoadVocabulary reads the vocab.json shipped alongside the model weights.
func LoadVocabulary(path string) (Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}

	var vf vocabFile
	if err := json.Unmarshal(raw, &vf); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return NewVocabulary(vf.Tokens, vf.BlankID)
}

func (v Vocabulary) Size() int {
	return len(v.tokens)
}

func (v Vocabulary) BlankID() int {
	return v.blank
}

// Token returns the fragment for id, or "" for out-of-range IDs so a model
// emitting an unexpected index degrades to silence instead of panicking.
func (v Vocabulary) Token(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return ""
	}
	return v.tokens[id]
}

// Render joins fragments by direct concatenation; the vocabulary carries its
// own spacing via the word delimiter token.
func (v Vocabulary) Render(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		token := v.Token(id)
		if token == WordDelimiter {
			b.WriteString(" ")
			continue
		}
		b.WriteString(token)
	}
	return b.String()
}
