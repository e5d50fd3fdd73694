package deliberation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinScore     = 1
	MaxScore     = 10
	DefaultScore = 5

	// NoReasoning stands in when a review carries no Reasoning token.
	NoReasoning = "No reasoning provided"

	maxReasoningChars = 200
)

var (
	// Tolerates markdown emphasis around the label, e.g. "**Score:** 8".
	scorePattern     = regexp.MustCompile(`(?i)score\**\s*:\s*\**\s*(-?\d+)`)
	reasoningPattern = regexp.MustCompile(`(?is)reasoning\**\s*:\s*\**(.+)`)
)

// ReviewParser turns a reviewer's free text into a score and short reasoning.
//
// Policy: blank text is unusable and dropped. A score token with a number is
// clamped into [MinScore, MaxScore]. A missing or non-numeric score falls back to
// DefaultScore unless DropUnscored is set, in which case the review is dropped.
type ReviewParser struct {
	DropUnscored bool
}

// Parse returns ok=false when the review must be dropped.
func (p ReviewParser) Parse(text string) (score int, reasoning string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return 0, "", false
	}

	score = DefaultScore
	if m := scorePattern.FindStringSubmatch(text); m != nil {
		score = clampScore(parseScore(m[1]))
	} else if p.DropUnscored {
		return 0, "", false
	}

	reasoning = NoReasoning
	if m := reasoningPattern.FindStringSubmatch(text); m != nil {
		r := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
		r = truncateRunes(r, maxReasoningChars)
		if r != "" {
			reasoning = r
		}
	}
	return score, reasoning, true
}

func parseScore(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			if strings.HasPrefix(digits, "-") {
				return MinScore
			}
			return MaxScore
		}
		return DefaultScore
	}
	return n
}

func clampScore(n int) int {
	if n < MinScore {
		return MinScore
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
