// Package classifier maps transcript text to an emotion label and a
// confidence score. Every adapter degrades to Unknown instead of returning
// an error, so callers never stall or fail on a misbehaving model.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"unicode/utf8"

	"github.com/callpulse/hub/internal/metrics"
)

// UnknownLabel is reported whenever classification could not produce a result.
const UnknownLabel = "unknown"

// Unknown is the sentinel result for any classification failure.
var Unknown = Result{Label: UnknownLabel, Score: 0}

// Result is the fixed shape every adapter produces.
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Valid reports whether r carries a usable label and a score in [0,1].
func (r Result) Valid() bool {
	return r.Label != "" && !math.IsNaN(r.Score) && r.Score >= 0 && r.Score <= 1
}

// Classifier is the port the hub classifies transcripts through.
// Implementations truncate text to maxLength runes before inference.
type Classifier interface {
	Classify(ctx context.Context, text string, maxLength int) Result
}

// Truncate cuts text to at most maxLength runes. A non-positive maxLength
// leaves text untouched.
func Truncate(text string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(text) <= maxLength {
		return text
	}
	n := 0
	for i := range text {
		if n == maxLength {
			return text[:i]
		}
		n++
	}
	return text
}

// Func adapts a fallible function to the Classifier port.
type Func func(ctx context.Context, text string) (Result, error)

func (f Func) Classify(ctx context.Context, text string, maxLength int) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Classifier panic recovered", "panic", r)
			metrics.ClassifierFailuresTotal.WithLabelValues("panic").Inc()
			res = Unknown
		}
	}()

	res, err := f(ctx, Truncate(text, maxLength))
	if err != nil {
		slog.Warn("Classification failed", "error", err)
		metrics.ClassifierFailuresTotal.WithLabelValues("error").Inc()
		return Unknown
	}
	if !res.Valid() {
		slog.Warn("Classifier returned malformed result", "result", fmt.Sprintf("%+v", res))
		metrics.ClassifierFailuresTotal.WithLabelValues("malformed").Inc()
		return Unknown
	}
	return res
}
