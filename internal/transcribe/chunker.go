package transcribe

import (
	"iter"
	"strings"
)

// span is a half-open window of sample offsets into a waveform.
type span struct {
	start int
	end   int
}

// chunkSpans lazily yields overlapping fixed-length windows covering n
// samples: window i starts at i*(chunk-stride) and spans chunk samples,
// clipped at the end. There is always at least one window, windows never
// leave gaps, and the final window ends exactly at n.
func chunkSpans(n, chunkSamples, strideSamples int) iter.Seq[span] {
	return func(yield func(span) bool) {
		step := chunkSamples - strideSamples
		for start := 0; ; start += step {
			end := min(start+chunkSamples, n)
			if !yield(span{start: start, end: end}) {
				return
			}
			if end >= n {
				return
			}
		}
	}
}

// wordsPerSecondBound caps how many words of overlap reconciliation the
// merge searches for per second of stride. Dictation rarely exceeds three
// words a second.
const wordsPerSecondBound = 3

func overlapWordBudget(strideSeconds float64) int {
	return int(strideSeconds*wordsPerSecondBound) + 1
}

// mergeTranscripts stitches the next window's text onto the accumulated
// transcript. The longest word suffix of acc that equals a prefix of next,
// bounded by maxOverlapWords, is treated as the overlap region's duplicate
// and dropped from next. The operation only ever appends, so the merged
// transcript is monotone non-decreasing and deterministic for fixed chunk
// boundaries.
func mergeTranscripts(acc, next string, maxOverlapWords int) string {
	next = strings.TrimSpace(next)
	if acc == "" {
		return next
	}
	if next == "" {
		return acc
	}

	accWords := strings.Fields(acc)
	nextWords := strings.Fields(next)

	limit := min(maxOverlapWords, len(accWords), len(nextWords))
	matched := 0
	for k := limit; k > 0; k-- {
		if wordsEqual(accWords[len(accWords)-k:], nextWords[:k]) {
			matched = k
			break
		}
	}

	rest := nextWords[matched:]
	if len(rest) == 0 {
		return acc
	}
	return acc + " " + strings.Join(rest, " ")
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
