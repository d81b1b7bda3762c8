package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fentz26/dagsmith/internal/audit"
	"github.com/google/uuid"
)

// Job is one unit of work. Run returns a short detail line on success.
type Job struct {
	Name    string
	Kind    string
	Project string
	Run     func(ctx context.Context) (string, error)
}

// Result is the outcome of one job.
type Result struct {
	Job      string
	WorkerID string
	Detail   string
	Err      error
	Duration time.Duration
}

// Stats is a snapshot of the worker pool.
type Stats struct {
	ActiveWorkers int            `json:"active_workers"`
	GlobalMax     int            `json:"global_max"`
	KindCounts    map[string]int `json:"kind_counts"`
	Peak          int            `json:"peak"`
}

// Scheduler dispatches jobs to workers within the configured limits.
type Scheduler struct {
	config *Config
	pdr    *audit.PDRWriter
	log    *slog.Logger

	global chan struct{}

	// Worker pool state
	mu         sync.Mutex
	kinds      map[string]chan struct{}
	active     int
	kindCounts map[string]int
	peak       int
}

// New creates a new scheduler. pdr may be nil.
func New(cfg *Config, pdr *audit.PDRWriter, logger *slog.Logger) *Scheduler {
	if cfg == nil || cfg.GlobalMax < 1 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		config:     cfg,
		pdr:        pdr,
		log:        logger,
		global:     make(chan struct{}, cfg.GlobalMax),
		kinds:      make(map[string]chan struct{}),
		kindCounts: make(map[string]int),
	}
}

func (sch *Scheduler) kindSlots(kind string) chan struct{} {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	ch, ok := sch.kinds[kind]
	if !ok {
		ch = make(chan struct{}, sch.config.KindLimit(kind))
		sch.kinds[kind] = ch
	}
	return ch
}

// Run executes every job and returns their results in job order. Jobs that
// never got a worker before ctx ended report ctx.Err().
func (sch *Scheduler) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = sch.runWorker(ctx, job)
		}()
	}
	wg.Wait()
	return results
}

// acquire takes a kind slot, then a global slot.
func (sch *Scheduler) acquire(ctx context.Context, kind chan struct{}) error {
	select {
	case kind <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case sch.global <- struct{}{}:
		return nil
	case <-ctx.Done():
		<-kind
		return ctx.Err()
	}
}

func (sch *Scheduler) runWorker(ctx context.Context, job Job) Result {
	res := Result{Job: job.Name}
	kind := sch.kindSlots(job.Kind)
	if err := sch.acquire(ctx, kind); err != nil {
		res.Err = err
		return res
	}
	defer func() {
		<-sch.global
		<-kind
	}()

	res.WorkerID = uuid.New().String()
	sch.mu.Lock()
	sch.active++
	sch.kindCounts[job.Kind]++
	if sch.active > sch.peak {
		sch.peak = sch.active
	}
	sch.mu.Unlock()
	defer func() {
		sch.mu.Lock()
		sch.active--
		sch.kindCounts[job.Kind]--
		sch.mu.Unlock()
	}()

	sch.log.Debug("dispatched job", "job", job.Name, "kind", job.Kind, "worker", res.WorkerID)

	start := time.Now()
	res.Detail, res.Err = job.Run(ctx)
	res.Duration = time.Since(start)

	outcome := "success"
	details := res.Detail
	if res.Err != nil {
		outcome = "failure"
		details = res.Err.Error()
		sch.log.Warn("job failed", "job", job.Name, "error", res.Err)
	}
	if sch.pdr != nil {
		if _, err := sch.pdr.Record(audit.ActionBuild, map[string]string{
			"job":    job.Name,
			"kind":   job.Kind,
			"worker": res.WorkerID,
		}, outcome, job.Project, details); err != nil {
			sch.log.Warn("audit record failed", "job", job.Name, "error", err)
		}
	}
	return res
}

// GetStats returns current scheduler statistics.
func (sch *Scheduler) GetStats() Stats {
	sch.mu.Lock()
	defer sch.mu.Unlock()

	counts := make(map[string]int, len(sch.kindCounts))
	for k, v := range sch.kindCounts {
		counts[k] = v
	}
	return Stats{
		ActiveWorkers: sch.active,
		GlobalMax:     sch.config.GlobalMax,
		KindCounts:    counts,
		Peak:          sch.peak,
	}
}
