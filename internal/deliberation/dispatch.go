package deliberation

import (
	"context"
	"strings"
	"sync"

	"github.com/ILLUVRSE/council/internal/models"
)

// SystemInstruction frames every Phase 1 answer.
const SystemInstruction = "You are a council member in an AI deliberation. Provide a clear, accurate, and well-reasoned answer. Be concise but thorough."

const (
	errRateLimited   = "rate limit exceeded"
	errEmptyResponse = "empty response"
)

// Admitter is the rate limiting capability the dispatcher consults before every Phase 1 call.
type Admitter interface {
	Admit(id string, limit int) bool
}

// dispatch asks every participant for an answer concurrently and waits for all of them.
// Results keep the order of participants. Failures become data, never errors.
func (o *Orchestrator) dispatch(ctx context.Context, query string, participants []models.Participant) []models.GenerationResult {
	results := make([]models.GenerationResult, len(participants))
	messages := []models.Message{
		{Role: models.RoleSystem, Content: SystemInstruction},
		{Role: models.RoleUser, Content: query},
	}

	var wg sync.WaitGroup
	for i, p := range participants {
		wg.Add(1)
		go func(i int, p models.Participant) {
			defer wg.Done()
			results[i] = o.answer(ctx, p, messages)
		}(i, p)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) answer(ctx context.Context, p models.Participant, messages []models.Message) models.GenerationResult {
	if !o.limiter.Admit(p.ID, p.RateLimitPerMinute) {
		o.logger.Printf("participant %s refused by rate limiter (%d/min)", p.ID, p.RateLimitPerMinute)
		return models.GenerationResult{ParticipantID: p.ID, Error: errRateLimited, Timestamp: o.now().UTC()}
	}

	start := o.now()
	out, err := o.gen.Generate(ctx, p, messages)
	if err != nil {
		return models.GenerationResult{
			ParticipantID: p.ID,
			LatencyMs:     o.now().Sub(start).Milliseconds(),
			Timestamp:     o.now().UTC(),
			Error:         err.Error(),
		}
	}
	if strings.TrimSpace(out.Content) == "" {
		return models.GenerationResult{
			ParticipantID: p.ID,
			LatencyMs:     out.LatencyMs,
			Timestamp:     o.now().UTC(),
			Error:         errEmptyResponse,
		}
	}

	res := models.GenerationResult{
		ParticipantID: p.ID,
		Content:       out.Content,
		LatencyMs:     out.LatencyMs,
		Timestamp:     out.Timestamp,
	}
	if res.LatencyMs <= 0 {
		res.LatencyMs = o.now().Sub(start).Milliseconds()
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = o.now().UTC()
	}
	if out.TokensUsed > 0 {
		tokens := out.TokensUsed
		res.TokensUsed = &tokens
	}
	return res
}

func succeeded(results []models.GenerationResult) []models.GenerationResult {
	var out []models.GenerationResult
	for _, r := range results {
		if !r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

func failures(results []models.GenerationResult) []ParticipantFailure {
	var out []ParticipantFailure
	for _, r := range results {
		if r.Failed() {
			out = append(out, ParticipantFailure{ParticipantID: r.ParticipantID, Error: r.Error})
		}
	}
	return out
}
