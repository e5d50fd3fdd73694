package deliberation

import (
	"context"
	"fmt"
	"sync"

	"github.com/ILLUVRSE/council/internal/models"
)

// DefaultReviewsPerParticipant bounds how many peers each reviewer critiques.
const DefaultReviewsPerParticipant = 3

type assignment struct {
	reviewer models.Participant
	target   models.GenerationResult
}

// assignReviews gives each reviewer the first n successful results authored by someone else,
// in Phase 1 order. Output order is reviewer order, then target order.
func assignReviews(reviewers []models.Participant, targets []models.GenerationResult, n int) []assignment {
	var out []assignment
	for _, reviewer := range reviewers {
		taken := 0
		for _, target := range targets {
			if taken == n {
				break
			}
			if target.Failed() || target.ParticipantID == reviewer.ID {
				continue
			}
			out = append(out, assignment{reviewer: reviewer, target: target})
			taken++
		}
	}
	return out
}

func reviewPrompt(query, content string) string {
	return fmt.Sprintf(`You are evaluating a council member's response to the following query:

Query: "%s"

Response to evaluate:
"""
%s
"""

Rate this response 1-10 on:
- Accuracy (4 points)
- Completeness (3 points)
- Reasoning quality (3 points)

Output format:
Score: [1-10]
Reasoning: [1-2 sentence justification]`, query, content)
}

// review runs every assignment concurrently. Failed or unusable reviews are dropped;
// the rest keep assignment order.
func (o *Orchestrator) review(ctx context.Context, query string, work []assignment) []models.PeerReview {
	slots := make([]*models.PeerReview, len(work))

	var wg sync.WaitGroup
	for i, a := range work {
		wg.Add(1)
		go func(i int, a assignment) {
			defer wg.Done()
			messages := []models.Message{{Role: models.RoleUser, Content: reviewPrompt(query, a.target.Content)}}
			out, err := o.gen.Generate(ctx, a.reviewer, messages)
			if err != nil {
				o.logger.Printf("review %s -> %s dropped: %v", a.reviewer.ID, a.target.ParticipantID, err)
				return
			}
			score, reasoning, ok := o.parser.Parse(out.Content)
			if !ok {
				o.logger.Printf("review %s -> %s dropped: unusable response", a.reviewer.ID, a.target.ParticipantID)
				return
			}
			slots[i] = &models.PeerReview{
				ReviewerID: a.reviewer.ID,
				TargetID:   a.target.ParticipantID,
				Score:      score,
				Reasoning:  reasoning,
			}
		}(i, a)
	}
	wg.Wait()

	reviews := make([]models.PeerReview, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			reviews = append(reviews, *r)
		}
	}
	return reviews
}
