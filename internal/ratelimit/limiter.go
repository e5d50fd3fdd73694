// Package ratelimit implements per-participant sliding-window admission control
// shared by every deliberation running in the process.
package ratelimit

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Window is the trailing span admissions are counted over.
const Window = time.Minute

// Config tunes a Limiter. Zero values pick defaults.
type Config struct {
	Window time.Duration
	Now    func() time.Time
	Logger *log.Logger
}

// Limiter keeps one window per participant id. Windows are locked individually so
// admissions for different participants never serialize each other.
type Limiter struct {
	mu      sync.RWMutex
	windows map[string]*window

	span   time.Duration
	now    func() time.Time
	logger *log.Logger
}

type window struct {
	mu     sync.Mutex
	stamps []time.Time // ascending
	dead   bool        // set when pruned; holders must re-resolve
}

// New returns a Limiter.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = Window
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[ratelimit] ", log.LstdFlags)
	}
	return &Limiter{
		windows: make(map[string]*window),
		span:    cfg.Window,
		now:     cfg.Now,
		logger:  cfg.Logger,
	}
}

// Admit records an admission for id and returns true when fewer than limit admissions
// happened in the trailing window. A refusal leaves the window untouched.
func (l *Limiter) Admit(id string, limit int) bool {
	if limit <= 0 {
		return false
	}
	for {
		w := l.lookup(id)
		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		now := l.now()
		w.evict(now, l.span)
		if len(w.stamps) >= limit {
			w.mu.Unlock()
			return false
		}
		w.stamps = append(w.stamps, now)
		w.mu.Unlock()
		return true
	}
}

// Usage returns how many admissions id has in the current window.
func (l *Limiter) Usage(id string) int {
	l.mu.RLock()
	w, ok := l.windows[id]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(l.now(), l.span)
	return len(w.stamps)
}

// Tracked returns the number of ids currently holding a window.
func (l *Limiter) Tracked() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.windows)
}

func (l *Limiter) lookup(id string) *window {
	l.mu.RLock()
	w, ok := l.windows[id]
	l.mu.RUnlock()
	if ok {
		return w
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.windows[id]; ok {
		return w
	}
	w = &window{}
	l.windows[id] = w
	return w
}

// Prune drops windows with no admission inside the trailing span and returns how many were removed.
func (l *Limiter) Prune() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, w := range l.windows {
		w.mu.Lock()
		w.evict(now, l.span)
		if len(w.stamps) == 0 {
			w.dead = true
			delete(l.windows, id)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// Run prunes on every tick until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.span
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Prune(); n > 0 {
				l.logger.Printf("pruned %d idle windows (%d tracked)", n, l.Tracked())
			}
		}
	}
}

func (w *window) evict(now time.Time, span time.Duration) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= span {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
