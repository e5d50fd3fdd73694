// Package events publishes one summary event per deliberation to a Kafka topic.
// Publishing is asynchronous and lossy under pressure; it never slows down or fails a run.
package events

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ILLUVRSE/council/internal/deliberation"
)

// Producer is the part of the Kafka writer the emitter needs.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) (time.Time, error)
	Close() error
}

type EmitterConfig struct {
	// QueueSize bounds pending events. Events beyond it are dropped. Defaults to 256.
	QueueSize int

	// MaxConcurrency bounds in-flight produce calls. Defaults to 4.
	MaxConcurrency int

	// PublishTimeout bounds a single event's produce including retries. Defaults to 30s.
	PublishTimeout time.Duration

	Logger *log.Logger
	Now    func() time.Time
}

// Stats are cumulative counters since start.
type Stats struct {
	Queued    int64 `json:"queued"`
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Emitter implements deliberation.Observer on top of a Producer.
type Emitter struct {
	producer Producer
	queue    chan Event
	cfg      EmitterConfig
	logger   *log.Logger
	now      func() time.Time

	queued    atomic.Int64
	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	wg sync.WaitGroup
}

var _ deliberation.Observer = (*Emitter)(nil)

func NewEmitter(producer Producer, cfg EmitterConfig) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[events] ", log.LstdFlags)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Emitter{
		producer: producer,
		queue:    make(chan Event, cfg.QueueSize),
		cfg:      cfg,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// ObserveDeliberation enqueues the run's event without blocking.
func (e *Emitter) ObserveDeliberation(o deliberation.Outcome) {
	ev := FromOutcome(o, e.now())
	select {
	case e.queue <- ev:
		e.queued.Add(1)
	default:
		e.dropped.Add(1)
		e.logger.Printf("queue full, dropped %s for run %s", ev.Type, ev.RunID)
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is already
// queued, waits for in-flight produces and closes the producer.
func (e *Emitter) Run(ctx context.Context) error {
	e.logger.Printf("starting (queue=%d, concurrency=%d)", e.cfg.QueueSize, e.cfg.MaxConcurrency)
	defer e.logger.Printf("stopped")

	sem := make(chan struct{}, e.cfg.MaxConcurrency)
	for {
		select {
		case <-ctx.Done():
			e.drain(sem)
			e.wg.Wait()
			if err := e.producer.Close(); err != nil {
				e.logger.Printf("close producer: %v", err)
			}
			return ctx.Err()
		case ev := <-e.queue:
			e.dispatch(sem, ev)
		}
	}
}

func (e *Emitter) drain(sem chan struct{}) {
	for {
		select {
		case ev := <-e.queue:
			e.dispatch(sem, ev)
		default:
			return
		}
	}
}

func (e *Emitter) dispatch(sem chan struct{}, ev Event) {
	sem <- struct{}{}
	e.wg.Add(1)
	go func() {
		defer func() {
			<-sem
			e.wg.Done()
		}()
		e.publish(ev)
	}()
}

func (e *Emitter) publish(ev Event) {
	// Detached from Run's ctx so a shutdown still flushes.
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PublishTimeout)
	defer cancel()

	body, err := ev.Encode()
	if err != nil {
		e.failed.Add(1)
		e.logger.Printf("encode %s for run %s: %v", ev.Type, ev.RunID, err)
		return
	}
	if _, err := e.producer.Produce(ctx, []byte(ev.RunID), body); err != nil {
		e.failed.Add(1)
		e.logger.Printf("publish %s for run %s: %v", ev.Type, ev.RunID, err)
		return
	}
	e.published.Add(1)
}

func (e *Emitter) Stats() Stats {
	return Stats{
		Queued:    e.queued.Load(),
		Published: e.published.Load(),
		Failed:    e.failed.Load(),
		Dropped:   e.dropped.Load(),
	}
}
