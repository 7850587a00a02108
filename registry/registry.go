// Package registry tracks per-job download progress between the download
// handler and the polling progress endpoint.
package registry

import (
	"context"
	"log"
	"sync"
	"time"
)

// Inactive is returned by Read for any id that has no active job,
// distinguishing "no such job" from a genuine 0% reading.
const Inactive = -1

type entry struct {
	percent float64
	updated time.Time
}

type Registry struct {
	mu          sync.Mutex
	jobs        map[string]*entry
	graceWindow time.Duration
	ttl         time.Duration
}

func New(graceWindow, ttl time.Duration) *Registry {
	return &Registry{
		jobs:        make(map[string]*entry),
		graceWindow: graceWindow,
		ttl:         ttl,
	}
}

// Begin marks a job id as active at 0%.
func (r *Registry) Begin(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &entry{updated: time.Now()}
}

// Record upserts the reported percentage for an active job. Reports for ids
// that were never begun are dropped, so the read side never sees them.
func (r *Registry) Record(id string, percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return
	}
	e.percent = percent
	e.updated = time.Now()
}

// Read returns the current percentage for id, or Inactive if no such job is
// being tracked.
func (r *Registry) Read(id string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return Inactive
	}
	return e.percent
}

// Complete finalizes a job. On success the percentage is forced to 100 and
// the entry lingers for the grace window so one last poll can observe it; on
// failure the entry is removed immediately.
func (r *Registry) Complete(id string, succeeded bool) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return
	}
	if !succeeded {
		delete(r.jobs, id)
		return
	}
	e.percent = 100
	e.updated = time.Now()
	time.AfterFunc(r.graceWindow, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Only remove the entry this timer was armed for; the id may have
		// been reused by a newer job in the meantime.
		if cur, ok := r.jobs[id]; ok && cur == e {
			delete(r.jobs, id)
		}
	})
}

// Len reports how many jobs are currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Start launches the background sweep that evicts entries for abandoned jobs,
// e.g. a subprocess killed out-of-band that never reached Complete.
func (r *Registry) Start(ctx context.Context) {
	go r.sweepLoop(ctx)
}

func (r *Registry) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 4) // Check 4 times per lifetime
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Registry sweep loop shutting down.")
			return
		case <-ticker.C:
			r.evictStale()
		}
	}
}

func (r *Registry) evictStale() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.jobs {
		if time.Since(e.updated) > r.ttl {
			log.Printf("Evicting stale job entry: %s", id)
			delete(r.jobs, id)
		}
	}
}
