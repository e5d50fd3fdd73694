package deliberation

import (
	"math"

	"github.com/ILLUVRSE/council/internal/models"
)

type tally struct {
	sum   int
	count int
}

func (t tally) mean() float64 {
	if t.count == 0 {
		return 0
	}
	return float64(t.sum) / float64(t.count)
}

// higherThan compares means exactly by cross-multiplying integer sums.
func (t tally) higherThan(o tally) bool {
	return t.sum*o.count > o.sum*t.count
}

func (t tally) equals(o tally) bool {
	return t.sum*o.count == o.sum*t.count
}

func tallyScores(reviews []models.PeerReview) map[string]tally {
	out := make(map[string]tally)
	for _, r := range reviews {
		t := out[r.TargetID]
		t.sum += r.Score
		t.count++
		out[r.TargetID] = t
	}
	return out
}

// effectiveLatency is the tie-break latency. Failed or unmeasured results never win a tie.
func effectiveLatency(r models.GenerationResult) int64 {
	if r.Failed() || r.LatencyMs <= 0 {
		return math.MaxInt64
	}
	return r.LatencyMs
}

// SelectChairman elects the reviewed participant with the strictly highest mean score.
// Equal means go to the lower latency, then to the earlier Phase 1 position.
// Only participants with a successful result are eligible. Pure, no I/O.
func SelectChairman(reviews []models.PeerReview, responses []models.GenerationResult, lookup func(id string) (models.Participant, bool)) (models.ChairmanProfile, error) {
	if len(reviews) == 0 {
		return models.ChairmanProfile{}, ErrNoChairmanSelectable
	}
	tallies := tallyScores(reviews)

	var (
		best      *models.GenerationResult
		bestTally tally
	)
	for i := range responses {
		r := responses[i]
		t, reviewed := tallies[r.ParticipantID]
		if !reviewed || r.Failed() {
			continue
		}
		if best == nil ||
			t.higherThan(bestTally) ||
			(t.equals(bestTally) && effectiveLatency(r) < effectiveLatency(*best)) {
			best = &responses[i]
			bestTally = t
		}
	}
	if best == nil {
		return models.ChairmanProfile{}, ErrNoChairmanSelectable
	}

	p, ok := lookup(best.ParticipantID)
	if !ok {
		return models.ChairmanProfile{}, ErrNoChairmanSelectable
	}
	avg := bestTally.mean()
	return models.ChairmanProfile{
		ParticipantID:  p.ID,
		DisplayName:    p.DisplayName,
		AverageScore:   math.Round(avg*10) / 10,
		ElevationLevel: int(math.Round(avg * 10)),
		Color:          p.Color,
		Specialty:      p.Specialty,
	}, nil
}
