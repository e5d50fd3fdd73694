package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ILLUVRSE/council/internal/deliberation"
	"github.com/ILLUVRSE/council/internal/provider"
	"github.com/ILLUVRSE/council/internal/registry"
)

// Config captures runtime settings for the council service.
type Config struct {
	Addr string

	GroqAPIKey    string
	GroqBaseURL   string
	GroqTimeout   time.Duration
	NvidiaAPIKey  string
	NvidiaBaseURL string
	NvidiaTimeout time.Duration

	DeliberationTimeout   time.Duration
	FastTimeout           time.Duration
	FastParticipantID     string
	FastMaxChars          int
	ComplexityKeywords    []string
	ReviewsPerParticipant int
	SynthesisExcerptChars int
	DropUnscoredReviews   bool

	RegistryFile         string
	LimiterPruneInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	MaxBodyBytes int
}

const (
	defaultAddr                 = ":8090"
	defaultGroqTimeout          = 60 * time.Second
	defaultNvidiaTimeout        = 90 * time.Second
	defaultLimiterPruneInterval = time.Minute
	defaultMaxBodyBytes         = 64 * 1024
)

// Load reads environment variables and returns a Config. Both provider keys are required.
func Load() (Config, error) {
	cfg := Config{
		Addr:          getEnv("COUNCIL_ADDR", defaultAddr),
		GroqAPIKey:    os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:   getEnv("GROQ_BASE_URL", provider.DefaultGroqBaseURL),
		GroqTimeout:   getDuration("COUNCIL_GROQ_TIMEOUT", defaultGroqTimeout),
		NvidiaAPIKey:  os.Getenv("NVIDIA_API_KEY"),
		NvidiaBaseURL: getEnv("NVIDIA_BASE_URL", provider.DefaultNvidiaBaseURL),
		NvidiaTimeout: getDuration("COUNCIL_NVIDIA_TIMEOUT", defaultNvidiaTimeout),

		DeliberationTimeout:   getDuration("COUNCIL_DELIBERATION_TIMEOUT", deliberation.DefaultDeliberationTimeout),
		FastTimeout:           getDuration("COUNCIL_FAST_TIMEOUT", deliberation.DefaultFastTimeout),
		FastParticipantID:     getEnv("COUNCIL_FAST_PARTICIPANT", registry.FastParticipantID),
		FastMaxChars:          getInt("COUNCIL_FAST_MAX_CHARS", deliberation.DefaultFastMaxChars),
		ComplexityKeywords:    getList("COUNCIL_COMPLEXITY_KEYWORDS", deliberation.DefaultComplexityKeywords),
		ReviewsPerParticipant: getInt("COUNCIL_REVIEWS_PER_PARTICIPANT", deliberation.DefaultReviewsPerParticipant),
		SynthesisExcerptChars: getInt("COUNCIL_SYNTHESIS_EXCERPT_CHARS", deliberation.DefaultSynthesisExcerptChars),
		DropUnscoredReviews:   getBool("COUNCIL_DROP_UNSCORED_REVIEWS", false),

		RegistryFile:         os.Getenv("COUNCIL_REGISTRY_FILE"),
		LimiterPruneInterval: getDuration("COUNCIL_LIMITER_PRUNE_INTERVAL", defaultLimiterPruneInterval),

		KafkaBrokers: getList("COUNCIL_KAFKA_BROKERS", nil),
		KafkaTopic:   os.Getenv("COUNCIL_KAFKA_TOPIC"),

		MaxBodyBytes: getInt("COUNCIL_MAX_BODY_BYTES", defaultMaxBodyBytes),
	}

	if cfg.GroqAPIKey == "" {
		return Config{}, fmt.Errorf("GROQ_API_KEY is required")
	}
	if cfg.NvidiaAPIKey == "" {
		return Config{}, fmt.Errorf("NVIDIA_API_KEY is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return Config{}, fmt.Errorf("COUNCIL_KAFKA_TOPIC is required when COUNCIL_KAFKA_BROKERS is set")
	}
	return cfg, nil
}

// EventsEnabled reports whether deliberation events should be published.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
