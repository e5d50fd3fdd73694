// Package deliberation runs the council pipeline: classify, dispatch, review,
// select a chairman and synthesize a final answer.
package deliberation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ILLUVRSE/council/internal/models"
	"github.com/ILLUVRSE/council/internal/provider"
	"github.com/ILLUVRSE/council/internal/registry"
)

const (
	DefaultDeliberationTimeout = 300 * time.Second
	DefaultFastTimeout         = 90 * time.Second

	minFullParticipants = 2
)

// Request is one incoming query.
type Request struct {
	Query              string
	Mode               models.Mode
	ActiveParticipants []string
}

// Outcome is what observers see once a run ends, successful or not.
type Outcome struct {
	RunID    uuid.UUID
	Query    string
	Mode     models.Mode
	Path     Path
	Result   *models.DeliberationResult
	Err      error
	Duration time.Duration
}

// Observer is notified of every terminal outcome. Implementations must not block.
type Observer interface {
	ObserveDeliberation(Outcome)
}

type Config struct {
	Classifier            ClassifierConfig
	FastParticipantID     string
	ReviewsPerParticipant int
	SynthesisExcerptChars int
	DeliberationTimeout   time.Duration
	FastTimeout           time.Duration
	Parser                ReviewParser
	Observer              Observer
	Logger                *log.Logger
	Now                   func() time.Time
}

type Orchestrator struct {
	registry   *registry.Registry
	gen        provider.Generator
	limiter    Admitter
	classifier *Classifier
	parser     ReviewParser
	observer   Observer
	logger     *log.Logger
	now        func() time.Time

	fast         models.Participant
	reviewsPer   int
	excerptChars int
	fullTimeout  time.Duration
	fastTimeout  time.Duration
}

func New(reg *registry.Registry, gen provider.Generator, limiter Admitter, cfg Config) (*Orchestrator, error) {
	if reg == nil || gen == nil || limiter == nil {
		return nil, errors.New("registry, generator and limiter are required")
	}
	classifier, err := NewClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	if cfg.FastParticipantID == "" {
		cfg.FastParticipantID = registry.FastParticipantID
	}
	fast, ok := reg.Get(cfg.FastParticipantID)
	if !ok {
		return nil, fmt.Errorf("fast participant %q is not in the registry", cfg.FastParticipantID)
	}
	if cfg.ReviewsPerParticipant <= 0 {
		cfg.ReviewsPerParticipant = DefaultReviewsPerParticipant
	}
	if cfg.SynthesisExcerptChars <= 0 {
		cfg.SynthesisExcerptChars = DefaultSynthesisExcerptChars
	}
	if cfg.DeliberationTimeout <= 0 {
		cfg.DeliberationTimeout = DefaultDeliberationTimeout
	}
	if cfg.FastTimeout <= 0 {
		cfg.FastTimeout = DefaultFastTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[deliberation] ", log.LstdFlags)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		registry:     reg,
		gen:          gen,
		limiter:      limiter,
		classifier:   classifier,
		parser:       cfg.Parser,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
		now:          cfg.Now,
		fast:         fast,
		reviewsPer:   cfg.ReviewsPerParticipant,
		excerptChars: cfg.SynthesisExcerptChars,
		fullTimeout:  cfg.DeliberationTimeout,
		fastTimeout:  cfg.FastTimeout,
	}, nil
}

// Classifier exposes the routing heuristic in use.
func (o *Orchestrator) Classifier() *Classifier { return o.classifier }

// Run executes one deliberation. Fatal conditions come back as *Error and no result.
// A fast-path run whose single call failed is not fatal: it returns a result with status error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.DeliberationResult, error) {
	start := o.now()
	run := &runState{id: uuid.New(), state: StateClassifying, mode: req.Mode, query: strings.TrimSpace(req.Query)}
	if run.mode == "" {
		run.mode = models.ModeFull
	}

	result, err := o.run(ctx, run, req.ActiveParticipants, start)
	if err != nil {
		o.logger.Printf("run %s failed in %s: %v", run.id, run.state, err)
		run.state = StateFailed
	} else {
		run.state = StateDone
	}
	if o.observer != nil {
		o.observer.ObserveDeliberation(Outcome{
			RunID:    run.id,
			Query:    run.query,
			Mode:     run.mode,
			Path:     run.path,
			Result:   result,
			Err:      err,
			Duration: o.now().Sub(start),
		})
	}
	return result, err
}

type runState struct {
	id    uuid.UUID
	state State
	mode  models.Mode
	path  Path
	query string
}

func (o *Orchestrator) run(ctx context.Context, run *runState, activeIDs []string, start time.Time) (*models.DeliberationResult, error) {
	if run.query == "" {
		return nil, fail(run.state, ErrInvalidQuery, nil)
	}
	if !run.mode.Valid() {
		return nil, fail(run.state, fmt.Errorf("%w: %q", ErrInvalidMode, run.mode), nil)
	}
	run.path = o.classifier.Route(run.query, run.mode)
	if run.path == PathFast {
		return o.runFast(ctx, run, start), nil
	}

	active, unknown := o.registry.Select(activeIDs)
	if len(unknown) > 0 {
		o.logger.Printf("run %s ignoring unknown participants %v", run.id, unknown)
	}
	if len(active) < minFullParticipants {
		return nil, fail(run.state, ErrInsufficientParticipants, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, o.fullTimeout)
	defer cancel()

	run.state = StateDispatching
	responses := o.dispatch(ctx, run.query, active)
	survivors := succeeded(responses)
	if len(survivors) == 0 {
		return nil, fail(run.state, ErrAllParticipantsFailed, failures(responses))
	}

	run.state = StateReviewing
	reviewers := make([]models.Participant, 0, len(survivors))
	for _, r := range survivors {
		p, _ := o.registry.Get(r.ParticipantID)
		reviewers = append(reviewers, p)
	}
	reviews := o.review(ctx, run.query, assignReviews(reviewers, survivors, o.reviewsPer))

	run.state = StateSelecting
	chairman, err := SelectChairman(reviews, responses, o.registry.Get)
	if err != nil {
		return nil, fail(run.state, err, failures(responses))
	}

	run.state = StateSynthesizing
	chair, _ := o.registry.Get(chairman.ParticipantID)
	prompt := synthesisPrompt(run.query, responses, tallyScores(reviews), o.displayName, o.excerptChars)
	synthesis, err := o.synthesize(ctx, chair, prompt)
	if err != nil {
		o.logger.Printf("run %s chairman %s synthesis failed: %v", run.id, chair.ID, err)
		return nil, fail(run.state, ErrSynthesisFailed, []ParticipantFailure{{ParticipantID: chair.ID, Error: err.Error()}})
	}

	return &models.DeliberationResult{
		ID:             run.id,
		Query:          run.query,
		Mode:           run.mode,
		Responses:      responses,
		Reviews:        reviews,
		Chairman:       &chairman,
		FinalSynthesis: &synthesis,
		Status:         models.StatusComplete,
		DurationMs:     o.now().Sub(start).Milliseconds(),
		Timestamp:      o.now().UTC(),
	}, nil
}

// runFast answers with the single low-latency participant and skips review, selection and synthesis.
func (o *Orchestrator) runFast(ctx context.Context, run *runState, start time.Time) *models.DeliberationResult {
	ctx, cancel := context.WithTimeout(ctx, o.fastTimeout)
	defer cancel()

	run.state = StateDispatching
	responses := o.dispatch(ctx, run.query, []models.Participant{o.fast})
	run.state = StateFastAnswer

	res := &models.DeliberationResult{
		ID:        run.id,
		Query:     run.query,
		Mode:      run.mode,
		Responses: responses,
		Reviews:   []models.PeerReview{},
		Status:    models.StatusComplete,
	}
	if responses[0].Failed() {
		res.Status = models.StatusError
		o.logger.Printf("run %s fast answer from %s failed: %s", run.id, o.fast.ID, responses[0].Error)
	} else {
		content := responses[0].Content
		res.FinalSynthesis = &content
	}
	res.DurationMs = o.now().Sub(start).Milliseconds()
	res.Timestamp = o.now().UTC()
	return res
}

func (o *Orchestrator) displayName(id string) string {
	if p, ok := o.registry.Get(id); ok && p.DisplayName != "" {
		return p.DisplayName
	}
	return id
}
