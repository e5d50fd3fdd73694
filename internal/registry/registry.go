package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ILLUVRSE/council/internal/models"
)

var (
	ErrEmptyRegistry      = errors.New("registry has no participants")
	ErrDuplicateID        = errors.New("duplicate participant id")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrInvalidParticipant = errors.New("invalid participant")
)

// Registry is the immutable participant set for the process lifetime.
// It keeps registry order for listings and an id index for lookups.
type Registry struct {
	ordered []models.Participant
	byID    map[string]models.Participant
}

// New validates participants and builds the index. Order is preserved.
func New(participants []models.Participant) (*Registry, error) {
	if len(participants) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &Registry{
		ordered: make([]models.Participant, 0, len(participants)),
		byID:    make(map[string]models.Participant, len(participants)),
	}
	for _, p := range participants {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, exists := r.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		r.byID[p.ID] = p
		r.ordered = append(r.ordered, p)
	}
	return r, nil
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(DefaultParticipants())
	if err != nil {
		panic(fmt.Sprintf("built-in registry invalid: %v", err))
	}
	return r
}

type fileFormat struct {
	Participants []models.Participant `yaml:"participants"`
}

// LoadFile reads a YAML registry of the form `participants: [...]`.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}
	return New(f.Participants)
}

func validate(p models.Participant) error {
	if p.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidParticipant)
	}
	if p.Model == "" {
		return fmt.Errorf("%w: %s: model required", ErrInvalidParticipant, p.ID)
	}
	if p.RateLimitPerMinute <= 0 {
		return fmt.Errorf("%w: %s: rateLimitPerMinute must be positive", ErrInvalidParticipant, p.ID)
	}
	switch p.Provider {
	case models.ProviderGroq, models.ProviderNvidia:
	default:
		return fmt.Errorf("%w: %s: %q", ErrUnknownProvider, p.ID, p.Provider)
	}
	return nil
}

// Get looks up a participant by id.
func (r *Registry) Get(id string) (models.Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns a copy of all participants in registry order.
func (r *Registry) List() []models.Participant {
	out := make([]models.Participant, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ByProvider returns the participants served by provider, in registry order.
func (r *Registry) ByProvider(provider models.Provider) []models.Participant {
	var out []models.Participant
	for _, p := range r.ordered {
		if p.Provider == provider {
			out = append(out, p)
		}
	}
	return out
}

// Select resolves the active set for a run. An empty ids list means every participant.
// Unknown ids are returned separately; the active set keeps registry order.
func (r *Registry) Select(ids []string) (active []models.Participant, unknown []string) {
	if len(ids) == 0 {
		return r.List(), nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		wanted[id] = struct{}{}
	}
	for _, p := range r.ordered {
		if _, ok := wanted[p.ID]; ok {
			active = append(active, p)
		}
	}
	sort.Strings(unknown)
	return active, unknown
}

// Providers returns the distinct providers present, sorted.
func (r *Registry) Providers() []models.Provider {
	seen := map[models.Provider]struct{}{}
	var out []models.Provider
	for _, p := range r.ordered {
		if _, ok := seen[p.Provider]; ok {
			continue
		}
		seen[p.Provider] = struct{}{}
		out = append(out, p.Provider)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
