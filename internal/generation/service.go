// Package generation runs generation requests as background jobs and tracks
// each job from pending to completed or failed.
//
// A job is created synchronously by Start and resolved by its own goroutine;
// once resolved it never changes. Callers poll Status, or block with Wait:
//
//	id, err := svc.Start(req)
//	snap, err := svc.Wait(ctx, id)
//	if snap.Status == generation.StatusCompleted {
//	    data, _ := svc.Archive(id)
//	}
package generation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/simonhull/firebird-suite/roost/internal/strategy"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrShuttingDown is returned by Start after Shutdown has begun
var ErrShuttingDown = errors.New("generation service is shutting down")

// Options configures a Service
type Options struct {
	// Retention is how long resolved jobs are kept before Sweep evicts them.
	// Zero keeps them until the process exits.
	Retention time.Duration
	Log       logger.Logger
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Snapshot is a read-only view of a job
type Snapshot struct {
	ID           string          `json:"generationId"`
	ProjectName  string          `json:"projectName"`
	Architecture string          `json:"architecture"`
	Status       Status          `json:"status"`
	Error        *apperr.Payload `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	ResolvedAt   *time.Time      `json:"resolvedAt,omitempty"`
}

type job struct {
	id        string
	project   string
	arch      feature.Architecture
	status    Status
	archive   []byte
	failure   *apperr.Payload
	createdAt time.Time
	resolved  time.Time
	done      chan struct{}
}

func (j *job) snapshot() Snapshot {
	s := Snapshot{
		ID:           j.id,
		ProjectName:  j.project,
		Architecture: j.arch.String(),
		Status:       j.status,
		Error:        j.failure,
		CreatedAt:    j.createdAt,
	}
	if j.status != StatusPending {
		t := j.resolved
		s.ResolvedAt = &t
	}
	return s
}

// Service owns the job table
type Service struct {
	strategies map[feature.Architecture]strategy.Strategy
	opts       Options
	log        logger.Logger
	registry   *prometheus.Registry
	metrics    *metrics

	mu     sync.RWMutex
	jobs   map[string]*job
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a service dispatching to strategies by architecture
func NewService(strategies map[feature.Architecture]strategy.Strategy, opts Options) *Service {
	if opts.Log == nil {
		opts.Log = logger.NewSilentLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	reg := prometheus.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		strategies: strategies,
		opts:       opts,
		log:        opts.Log.WithFields(logger.F("component", "generation")),
		registry:   reg,
		metrics:    newMetrics(reg),
		jobs:       make(map[string]*job),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Registry exposes the service metrics for a /metrics handler
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// Start validates req, records a pending job and runs it in the background.
// Only validation problems are returned here; everything else resolves the job
// as failed.
func (s *Service) Start(req strategy.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	arch, err := req.Arch()
	if err != nil {
		return "", err
	}
	strat, ok := s.strategies[arch]
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("no strategy for %s architecture", arch),
			map[string]any{"architecture": arch.String()})
	}

	j := &job{
		id:        uuid.NewString(),
		project:   req.ProjectName,
		arch:      arch,
		status:    StatusPending,
		createdAt: s.opts.Now(),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrShuttingDown
	}
	s.jobs[j.id] = j
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.started.WithLabelValues(arch.String()).Inc()
	s.log.Info("generation started",
		logger.F("id", j.id),
		logger.F("project", req.ProjectName),
		logger.F("architecture", arch.String()))

	go s.run(j, strat, req)
	return j.id, nil
}

func (s *Service) run(j *job, strat strategy.Strategy, req strategy.Request) {
	defer s.wg.Done()

	s.metrics.inFlight.Inc()
	began := time.Now()

	var (
		data []byte
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("generation panicked",
					logger.F("id", j.id),
					logger.F("panic", r),
					logger.F("stack", string(debug.Stack())))
				err = apperr.Unknown(fmt.Errorf("generation panicked: %v", r))
			}
		}()
		data, err = strat.Generate(s.ctx, req)
	}()

	s.metrics.inFlight.Dec()
	s.metrics.duration.WithLabelValues(j.arch.String()).Observe(time.Since(began).Seconds())
	s.resolve(j, data, err)
}

func (s *Service) resolve(j *job, data []byte, err error) {
	s.mu.Lock()
	j.resolved = s.opts.Now()
	if err != nil {
		payload := apperr.ToPayload(err, j.resolved)
		j.status = StatusFailed
		j.failure = &payload
	} else {
		j.status = StatusCompleted
		j.archive = data
	}
	status := j.status
	s.mu.Unlock()

	s.metrics.finished.WithLabelValues(j.arch.String(), string(status)).Inc()
	if err != nil {
		s.log.Error("generation failed",
			logger.F("id", j.id),
			logger.F("code", string(apperr.CodeOf(err))),
			logger.Err(err))
	} else {
		s.log.Info("generation completed",
			logger.F("id", j.id),
			logger.F("bytes", len(data)))
	}
	close(j.done)
}

func (s *Service) lookup(id string) (*job, error) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.GenerationNotFound(id)
	}
	return j, nil
}

// Status returns the current state of job id
func (s *Service) Status(id string) (Snapshot, error) {
	j, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return j.snapshot(), nil
}

// Archive returns the zip bytes of a completed job
func (s *Service) Archive(id string) ([]byte, error) {
	j, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if j.status != StatusCompleted {
		return nil, apperr.ProjectNotReady(id, string(j.status))
	}
	if len(j.archive) == 0 {
		return nil, apperr.ProjectDataMissing(id)
	}
	return j.archive, nil
}

// Wait blocks until job id is resolved or ctx is done
func (s *Service) Wait(ctx context.Context, id string) (Snapshot, error) {
	j, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return j.snapshot(), nil
}

// Sweep evicts resolved jobs older than the retention window and returns
// how many were removed. Pending jobs are never evicted.
func (s *Service) Sweep() int {
	if s.opts.Retention <= 0 {
		return 0
	}
	cutoff := s.opts.Now().Add(-s.opts.Retention)

	s.mu.Lock()
	removed := 0
	for id, j := range s.jobs {
		if j.status != StatusPending && j.resolved.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.log.Debug("swept resolved jobs", logger.F("removed", removed))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.Retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Shutdown stops accepting jobs, cancels running ones and waits for them to
// resolve or for ctx to expire
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running generations: %w", ctx.Err())
	}
}
