package models

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies the upstream backend a participant is served by.
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderNvidia Provider = "nvidia"
)

// Participant is one configured council member. Loaded once at startup and never mutated.
type Participant struct {
	ID                 string   `json:"id" yaml:"id"`
	Provider           Provider `json:"provider" yaml:"provider"`
	DisplayName        string   `json:"displayName" yaml:"displayName"`
	Model              string   `json:"model" yaml:"model"`
	ContextWindow      int      `json:"contextWindow" yaml:"contextWindow"`
	Temperature        float64  `json:"temperature" yaml:"temperature"`
	MaxTokens          int      `json:"maxTokens" yaml:"maxTokens"`
	Specialty          string   `json:"specialty" yaml:"specialty"`
	Color              string   `json:"color" yaml:"color"`
	RingPosition       int      `json:"ringPosition" yaml:"ringPosition"`
	RateLimitPerMinute int      `json:"rateLimitPerMinute" yaml:"rateLimitPerMinute"`
}

// Message is a single chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Completion is what the generation collaborator hands back on success.
type Completion struct {
	Content    string
	LatencyMs  int64
	TokensUsed int
	Timestamp  time.Time
}

// GenerationResult records one participant's Phase 1 outcome. Error and Content are exclusive.
type GenerationResult struct {
	ParticipantID string    `json:"participantId"`
	Content       string    `json:"content"`
	LatencyMs     int64     `json:"latencyMs"`
	TokensUsed    *int      `json:"tokensUsed,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
}

// Failed reports whether the participant produced no usable answer.
func (g GenerationResult) Failed() bool {
	return g.Error != ""
}

// PeerReview is a scored critique of one participant's answer by another.
type PeerReview struct {
	ReviewerID string `json:"reviewerId"`
	TargetID   string `json:"targetId"`
	Score      int    `json:"score"`
	Reasoning  string `json:"reasoning"`
}

// ChairmanProfile describes the participant elected to write the final synthesis.
type ChairmanProfile struct {
	ParticipantID  string  `json:"participantId"`
	DisplayName    string  `json:"displayName"`
	AverageScore   float64 `json:"averageScore"`
	ElevationLevel int     `json:"elevationLevel"`
	Color          string  `json:"color"`
	Specialty      string  `json:"specialty"`
}

type Mode string

const (
	ModeFast Mode = "fast"
	ModeAuto Mode = "auto"
	ModeFull Mode = "full"
)

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeFast, ModeAuto, ModeFull:
		return true
	}
	return false
}

type Status string

const (
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// DeliberationResult is the terminal artifact of one run. The caller owns it once returned.
type DeliberationResult struct {
	ID             uuid.UUID          `json:"id"`
	Query          string             `json:"query"`
	Mode           Mode               `json:"mode"`
	Responses      []GenerationResult `json:"responses"`
	Reviews        []PeerReview       `json:"reviews"`
	Chairman       *ChairmanProfile   `json:"chairman"`
	FinalSynthesis *string            `json:"finalSynthesis"`
	Status         Status             `json:"status"`
	DurationMs     int64              `json:"durationMs"`
	Timestamp      time.Time          `json:"timestamp"`
}
