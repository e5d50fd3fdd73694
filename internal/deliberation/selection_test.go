package deliberation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ILLUVRSE/council/internal/models"
)

func lookupOf(ids ...string) func(string) (models.Participant, bool) {
	ps := map[string]models.Participant{}
	for _, id := range ids {
		ps[id] = models.Participant{ID: id, DisplayName: "Model " + strings.ToUpper(id), Color: "#fff", Specialty: "general"}
	}
	return func(id string) (models.Participant, bool) {
		p, ok := ps[id]
		return p, ok
	}
}

func reviewsOf(scores map[string][]int) []models.PeerReview {
	var out []models.PeerReview
	for target, list := range scores {
		for _, s := range list {
			out = append(out, models.PeerReview{ReviewerID: "x", TargetID: target, Score: s})
		}
	}
	return out
}

func TestSelectChairmanTieGoesToLowerLatency(t *testing.T) {
	responses := []models.GenerationResult{
		{ParticipantID: "b", Content: "b", LatencyMs: 1200},
		{ParticipantID: "a", Content: "a", LatencyMs: 900},
	}
	reviews := reviewsOf(map[string][]int{"a": {8, 8}, "b": {7, 9}})

	for i := 0; i < 20; i++ {
		got, err := SelectChairman(reviews, responses, lookupOf("a", "b"))
		require.NoError(t, err)
		assert.Equal(t, "a", got.ParticipantID)
	}
}

func TestSelectChairmanHigherMeanBeatsLatency(t *testing.T) {
	responses := []models.GenerationResult{
		{ParticipantID: "fast", Content: "x", LatencyMs: 50},
		{ParticipantID: "slow", Content: "y", LatencyMs: 60_000},
	}
	reviews := reviewsOf(map[string][]int{"fast": {7, 8}, "slow": {8, 8}})

	got, err := SelectChairman(reviews, responses, lookupOf("fast", "slow"))
	require.NoError(t, err)
	assert.Equal(t, "slow", got.ParticipantID)
	assert.Equal(t, "Model SLOW", got.DisplayName)
}

func TestSelectChairmanMissingLatencyNeverWinsTie(t *testing.T) {
	responses := []models.GenerationResult{
		{ParticipantID: "a", Content: "x"},
		{ParticipantID: "b", Content: "y", LatencyMs: 5_000},
	}
	reviews := reviewsOf(map[string][]int{"a": {6}, "b": {6}})

	got, err := SelectChairman(reviews, responses, lookupOf("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", got.ParticipantID)
}

func TestSelectChairmanFullTieKeepsPhaseOneOrder(t *testing.T) {
	responses := []models.GenerationResult{
		{ParticipantID: "b", Content: "x", LatencyMs: 300},
		{ParticipantID: "a", Content: "y", LatencyMs: 300},
	}
	reviews := reviewsOf(map[string][]int{"a": {6}, "b": {6}})

	got, err := SelectChairman(reviews, responses, lookupOf("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", got.ParticipantID)
}

func TestSelectChairmanIgnoresFailedTargets(t *testing.T) {
	responses := []models.GenerationResult{
		{ParticipantID: "a", Error: "request failed"},
		{ParticipantID: "b", Content: "y", LatencyMs: 10},
	}
	reviews := reviewsOf(map[string][]int{"a": {10}, "b": {2}})

	got, err := SelectChairman(reviews, responses, lookupOf("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", got.ParticipantID)
}

func TestSelectChairmanRounding(t *testing.T) {
	responses := []models.GenerationResult{{ParticipantID: "a", Content: "x", LatencyMs: 1}}
	reviews := reviewsOf(map[string][]int{"a": {7, 8, 8}})

	got, err := SelectChairman(reviews, responses, lookupOf("a"))
	require.NoError(t, err)
	assert.Equal(t, 7.7, got.AverageScore)
	assert.Equal(t, 77, got.ElevationLevel)
}

func TestSelectChairmanWithoutReviews(t *testing.T) {
	_, err := SelectChairman(nil, []models.GenerationResult{{ParticipantID: "a", Content: "x"}}, lookupOf("a"))
	assert.ErrorIs(t, err, ErrNoChairmanSelectable)
}

func TestAssignReviewsSkipsSelfAndCaps(t *testing.T) {
	var reviewers []models.Participant
	var targets []models.GenerationResult
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		reviewers = append(reviewers, models.Participant{ID: id})
		targets = append(targets, models.GenerationResult{ParticipantID: id, Content: id})
	}

	got := assignReviews(reviewers, targets, 3)
	require.Len(t, got, 15)

	var forA, forE []string
	for _, a := range got {
		assert.NotEqual(t, a.reviewer.ID, a.target.ParticipantID)
		switch a.reviewer.ID {
		case "a":
			forA = append(forA, a.target.ParticipantID)
		case "e":
			forE = append(forE, a.target.ParticipantID)
		}
	}
	assert.Equal(t, []string{"b", "c", "d"}, forA)
	assert.Equal(t, []string{"a", "b", "c"}, forE)
}

func TestSynthesisPrompt(t *testing.T) {
	responses := []models.GenerationResult{
		{ParticipantID: "a", Content: strings.Repeat("α", 600)},
		{ParticipantID: "b", Error: "request failed"},
		{ParticipantID: "c", Content: "short answer"},
	}
	tallies := tallyScores([]models.PeerReview{
		{ReviewerID: "c", TargetID: "a", Score: 7},
		{ReviewerID: "b", TargetID: "a", Score: 8},
	})
	names := func(id string) string { return "Model " + strings.ToUpper(id) }

	prompt := synthesisPrompt("What now?", responses, tallies, names, 500)

	assert.True(t, strings.HasPrefix(prompt, "You are the Chairman of the AI Council."))
	assert.Contains(t, prompt, `Query: "What now?"`)
	assert.Contains(t, prompt, "[Model A | Score: 7.5/10]: "+strings.Repeat("α", 500)+"\n\n")
	assert.NotContains(t, prompt, strings.Repeat("α", 501))
	assert.Contains(t, prompt, "[Model C | Score: 0.0/10]: short answer")
	assert.NotContains(t, prompt, "Model B")
	assert.Contains(t, prompt, "4. Keep it comprehensive but concise (max 3 paragraphs)")
	assert.True(t, strings.HasSuffix(prompt, "Final Answer:"))
	assert.Equal(t, 500, utf8.RuneCountInString(excerptOf(strings.Repeat("ß", 800), 500)))
}
