package deliberation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ILLUVRSE/council/internal/models"
)

// DefaultSynthesisExcerptChars caps how much of each answer the chairman sees.
const DefaultSynthesisExcerptChars = 500

func synthesisPrompt(query string, responses []models.GenerationResult, tallies map[string]tally, displayName func(id string) string, excerpt int) string {
	var b strings.Builder
	b.WriteString("You are the Chairman of the AI Council. Your task is to synthesize the council's deliberation into a final, authoritative answer.\n\n")
	fmt.Fprintf(&b, "Query: \"%s\"\n\n", query)
	b.WriteString("Council Responses:\n")

	first := true
	for _, r := range responses {
		if r.Failed() {
			continue
		}
		if !first {
			b.WriteString("\n\n")
		}
		first = false
		fmt.Fprintf(&b, "[%s | Score: %.1f/10]: %s", displayName(r.ParticipantID), tallies[r.ParticipantID].mean(), excerptOf(r.Content, excerpt))
	}

	b.WriteString("\n\nInstructions:\n")
	b.WriteString("1. Identify points of consensus among high-scoring responses\n")
	b.WriteString("2. Resolve any contradictions with clear reasoning\n")
	b.WriteString("3. Provide the definitive answer\n")
	b.WriteString("4. Keep it comprehensive but concise (max 3 paragraphs)\n\n")
	b.WriteString("Final Answer:")
	return b.String()
}

func excerptOf(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// synthesize makes the single chairman call. It has no fallback.
func (o *Orchestrator) synthesize(ctx context.Context, chairman models.Participant, prompt string) (string, error) {
	out, err := o.gen.Generate(ctx, chairman, []models.Message{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Content) == "" {
		return "", errors.New(errEmptyResponse)
	}
	return out.Content, nil
}
