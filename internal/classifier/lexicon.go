package classifier

import (
	"context"
	"strings"
	"unicode"
)

const neutralLabel = "neutral"

var defaultLexicon = map[string][]string{
	"anger":    {"angry", "furious", "outraged", "ridiculous", "unacceptable", "mad", "annoyed", "livid", "hate"},
	"fear":     {"afraid", "scared", "worried", "terrified", "nervous", "anxious", "panic", "frightened"},
	"sadness":  {"sad", "upset", "disappointed", "unhappy", "crying", "depressed", "miserable", "heartbroken"},
	"joy":      {"happy", "great", "thanks", "thank", "nice", "wonderful", "glad", "love", "excellent"},
	"surprise": {"wow", "unexpected", "surprised", "shocked", "unbelievable"},
	"disgust":  {"disgusting", "gross", "revolting", "sickening"},
}

// Lexicon is a keyword classifier used when no model endpoint is configured.
// Each keyword hit adds confidence to its label; text without hits is neutral.
type Lexicon struct {
	words map[string]string
}

func NewLexicon() *Lexicon {
	return NewLexiconFrom(defaultLexicon)
}

// NewLexiconFrom builds a lexicon from label → keywords.
func NewLexiconFrom(entries map[string][]string) *Lexicon {
	l := &Lexicon{words: make(map[string]string)}
	for label, words := range entries {
		for _, w := range words {
			l.words[strings.ToLower(w)] = label
		}
	}
	return l
}

func (l *Lexicon) Classify(_ context.Context, text string, maxLength int) Result {
	tokens := strings.FieldsFunc(strings.ToLower(Truncate(text, maxLength)), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	hits := make(map[string]int)
	for _, tok := range tokens {
		if label, ok := l.words[tok]; ok {
			hits[label]++
		}
	}

	best, count := "", 0
	for label, n := range hits {
		if n > count || (n == count && label < best) {
			best, count = label, n
		}
	}
	if count == 0 {
		return Result{Label: neutralLabel, Score: 0.5}
	}

	score := 0.5 + 0.15*float64(count)
	if score > 0.95 {
		score = 0.95
	}
	return Result{Label: best, Score: score}
}
