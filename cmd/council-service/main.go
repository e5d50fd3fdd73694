package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ILLUVRSE/council/internal/config"
	"github.com/ILLUVRSE/council/internal/deliberation"
	"github.com/ILLUVRSE/council/internal/events"
	"github.com/ILLUVRSE/council/internal/httpserver"
	"github.com/ILLUVRSE/council/internal/models"
	"github.com/ILLUVRSE/council/internal/provider"
	"github.com/ILLUVRSE/council/internal/ratelimit"
	"github.com/ILLUVRSE/council/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	reg := registry.Default()
	if cfg.RegistryFile != "" {
		reg, err = registry.LoadFile(cfg.RegistryFile)
		if err != nil {
			log.Fatalf("registry load: %v", err)
		}
	}

	groq, err := provider.NewClient(provider.ClientConfig{
		Provider: models.ProviderGroq,
		APIKey:   cfg.GroqAPIKey,
		BaseURL:  cfg.GroqBaseURL,
		Timeout:  cfg.GroqTimeout,
	})
	if err != nil {
		log.Fatalf("groq client: %v", err)
	}
	nvidia, err := provider.NewClient(provider.ClientConfig{
		Provider: models.ProviderNvidia,
		APIKey:   cfg.NvidiaAPIKey,
		BaseURL:  cfg.NvidiaBaseURL,
		Timeout:  cfg.NvidiaTimeout,
	})
	if err != nil {
		log.Fatalf("nvidia client: %v", err)
	}
	router := provider.NewRouter(map[models.Provider]provider.Generator{
		models.ProviderGroq:   groq,
		models.ProviderNvidia: nvidia,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	limiter := ratelimit.New(ratelimit.Config{})
	workers.Add(1)
	go func() {
		defer workers.Done()
		limiter.Run(ctx, cfg.LimiterPruneInterval)
	}()

	var observer deliberation.Observer
	var stats httpserver.EventStats
	if cfg.EventsEnabled() {
		producer, err := events.NewKafkaProducer(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		emitter := events.NewEmitter(producer, events.EmitterConfig{})
		observer, stats = emitter, emitter
		workers.Add(1)
		go func() {
			defer workers.Done()
			_ = emitter.Run(ctx)
		}()
	}

	orch, err := deliberation.New(reg, router, limiter, deliberation.Config{
		Classifier: deliberation.ClassifierConfig{
			MaxChars: cfg.FastMaxChars,
			Keywords: cfg.ComplexityKeywords,
		},
		FastParticipantID:     cfg.FastParticipantID,
		ReviewsPerParticipant: cfg.ReviewsPerParticipant,
		SynthesisExcerptChars: cfg.SynthesisExcerptChars,
		DeliberationTimeout:   cfg.DeliberationTimeout,
		FastTimeout:           cfg.FastTimeout,
		Parser:                deliberation.ReviewParser{DropUnscored: cfg.DropUnscoredReviews},
		Observer:              observer,
	})
	if err != nil {
		log.Fatalf("orchestrator init: %v", err)
	}

	server := httpserver.New(cfg, reg, orch, limiter, stats)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Council service listening on %s (%d participants)", cfg.Addr, len(reg.List()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	shutdown(httpServer)
	cancel()
	workers.Wait()
}

func shutdown(s *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
