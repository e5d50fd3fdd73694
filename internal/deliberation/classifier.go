package deliberation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ILLUVRSE/council/internal/models"
)

// DefaultFastMaxChars is the auto-mode length bound; queries at or above it take the full path.
const DefaultFastMaxChars = 60

// DefaultComplexityKeywords are comparative, causal and evaluative terms that force the full path in auto mode.
var DefaultComplexityKeywords = []string{
	"why", "how", "compare", "analyze", "explain", "difference",
	"best", "worst", "should", "would", "could",
}

// Path is the pipeline a query is routed to.
type Path string

const (
	PathFast Path = "fast"
	PathFull Path = "full"
)

// ClassifierConfig is the whole fast-path heuristic. Keywords match as whole words, case-insensitively.
type ClassifierConfig struct {
	MaxChars int
	Keywords []string
}

type Classifier struct {
	maxChars int
	keywords []string
	pattern  *regexp.Regexp
}

func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultFastMaxChars
	}
	if cfg.Keywords == nil {
		cfg.Keywords = DefaultComplexityKeywords
	}
	var quoted []string
	var keywords []string
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	c := &Classifier{maxChars: cfg.MaxChars, keywords: keywords}
	if len(quoted) == 0 {
		return c, nil
	}
	pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile complexity keywords: %w", err)
	}
	c.pattern = pattern
	return c, nil
}

// Simple reports whether query is short and free of complexity keywords.
func (c *Classifier) Simple(query string) bool {
	if utf8.RuneCountInString(query) >= c.maxChars {
		return false
	}
	return c.pattern == nil || !c.pattern.MatchString(query)
}

// Route picks the pipeline for (query, mode). It is a pure function of its inputs and the config.
func (c *Classifier) Route(query string, mode models.Mode) Path {
	switch mode {
	case models.ModeFast:
		return PathFast
	case models.ModeAuto:
		if c.Simple(query) {
			return PathFast
		}
	}
	return PathFull
}

// Config returns the effective configuration.
func (c *Classifier) Config() ClassifierConfig {
	kw := make([]string, len(c.keywords))
	copy(kw, c.keywords)
	return ClassifierConfig{MaxChars: c.maxChars, Keywords: kw}
}
