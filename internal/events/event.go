package events

import (
	"errors"
	"time"

	"github.com/ILLUVRSE/council/internal/canonical"
	"github.com/ILLUVRSE/council/internal/deliberation"
	"github.com/ILLUVRSE/council/internal/models"
)

const (
	TypeCompleted = "deliberation.completed"
	TypeFailed    = "deliberation.failed"
)

// Event summarizes one run. It carries a fingerprint of the query, never the query
// text or any participant output.
type Event struct {
	RunID              string                            `json:"runId"`
	Type               string                            `json:"type"`
	Mode               models.Mode                       `json:"mode"`
	Path               deliberation.Path                 `json:"path,omitempty"`
	QuerySHA256        string                            `json:"querySha256"`
	Status             models.Status                     `json:"status"`
	ChairmanID         string                            `json:"chairmanId,omitempty"`
	AverageScore       float64                           `json:"averageScore,omitempty"`
	Error              string                            `json:"error,omitempty"`
	FailedState        deliberation.State                `json:"failedState,omitempty"`
	DurationMs         int64                             `json:"durationMs"`
	ResponseCount      int                               `json:"responseCount"`
	ReviewCount        int                               `json:"reviewCount"`
	FailedParticipants []deliberation.ParticipantFailure `json:"failedParticipants"`
	Ts                 time.Time                         `json:"ts"`
}

// FromOutcome builds the event for a finished run.
func FromOutcome(o deliberation.Outcome, now time.Time) Event {
	ev := Event{
		RunID:              o.RunID.String(),
		Type:               TypeCompleted,
		Mode:               o.Mode,
		Path:               o.Path,
		QuerySHA256:        canonical.SHA256Hex(o.Query),
		Status:             models.StatusComplete,
		DurationMs:         o.Duration.Milliseconds(),
		FailedParticipants: []deliberation.ParticipantFailure{},
		Ts:                 now.UTC(),
	}

	if o.Err != nil {
		ev.Type = TypeFailed
		ev.Status = models.StatusError
		ev.Error = o.Err.Error()
		var derr *deliberation.Error
		if errors.As(o.Err, &derr) {
			ev.Error = derr.Err.Error()
			ev.FailedState = derr.State
			if len(derr.Failures) > 0 {
				ev.FailedParticipants = derr.Failures
			}
		}
		return ev
	}

	r := o.Result
	if r == nil {
		return ev
	}
	ev.Status = r.Status
	if r.Status == models.StatusError {
		ev.Type = TypeFailed
	}
	ev.ResponseCount = len(r.Responses)
	ev.ReviewCount = len(r.Reviews)
	if r.Chairman != nil {
		ev.ChairmanID = r.Chairman.ParticipantID
		ev.AverageScore = r.Chairman.AverageScore
	}
	for _, resp := range r.Responses {
		if resp.Failed() {
			ev.FailedParticipants = append(ev.FailedParticipants, deliberation.ParticipantFailure{
				ParticipantID: resp.ParticipantID,
				Error:         resp.Error,
			})
		}
	}
	return ev
}

// Encode returns the canonical JSON form published to the stream.
func (e Event) Encode() ([]byte, error) {
	return canonical.Marshal(e)
}
