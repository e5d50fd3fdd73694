package deliberation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidQuery             = errors.New("query must be a non-empty string")
	ErrInvalidMode              = errors.New("mode must be one of fast, auto, full")
	ErrInsufficientParticipants = errors.New("a full deliberation needs at least 2 active participants")
	ErrAllParticipantsFailed    = errors.New("all participants failed to respond")
	ErrNoChairmanSelectable     = errors.New("could not select chairman from reviews")
	ErrSynthesisFailed          = errors.New("chairman synthesis failed")
)

// State is a step of one deliberation run. Runs only move forward.
type State string

const (
	StateClassifying  State = "classifying"
	StateDispatching  State = "dispatching"
	StateFastAnswer   State = "fastAnswer"
	StateReviewing    State = "reviewing"
	StateSelecting    State = "selecting"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// ParticipantFailure is the sanitized reason one participant contributed nothing.
type ParticipantFailure struct {
	ParticipantID string `json:"participantId"`
	Error         string `json:"error"`
}

// Error is a fatal deliberation failure. Err is one of the package sentinels.
type Error struct {
	Err      error
	State    State
	Failures []ParticipantFailure
}

func (e *Error) Error() string {
	if len(e.Failures) == 0 {
		return e.Err.Error()
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.ParticipantID, f.Error))
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error { return e.Err }

func fail(state State, err error, failures []ParticipantFailure) *Error {
	return &Error{Err: err, State: state, Failures: failures}
}
