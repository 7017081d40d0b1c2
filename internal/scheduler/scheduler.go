package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RunState describes what a job is doing right now.
type RunState string

const (
	StateIdle    RunState = "idle"
	StateRunning RunState = "running"
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobStats is a point-in-time snapshot of one job's run history.
type JobStats struct {
	Name      string    `json:"name"`
	State     RunState  `json:"state"`
	Runs      int64     `json:"runs"`
	Skips     int64     `json:"skips"`
	Failures  int64     `json:"failures"`
	Abandoned int64     `json:"abandoned"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

type jobEntry struct {
	name    string
	job     Job
	timeout time.Duration

	mu    sync.Mutex
	state RunState
	stats JobStats
}

// Scheduler drives periodic jobs on cron expressions. A tick that fires
// while the previous run of the same job is still in flight is skipped,
// never queued. A run that outlives its timeout is abandoned: its context
// is cancelled and nothing it did not commit is retried.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs []*jobEntry
}

// New creates a scheduler. Jobs are registered with AddJob before Start.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cronLogger{})),
	}
}

// AddJob registers a named job under a cron expression. A zero timeout
// means the run is bounded only by scheduler shutdown.
func (s *Scheduler) AddJob(name, spec string, timeout time.Duration, job Job) error {
	entry := &jobEntry{
		name:    name,
		job:     job,
		timeout: timeout,
		state:   StateIdle,
		stats:   JobStats{Name: name, State: StateIdle},
	}

	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(context.Background(), entry)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, entry)
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, e *jobEntry) {
	e.mu.Lock()
	if e.state == StateRunning {
		e.stats.Skips++
		e.mu.Unlock()
		log.Warn().Str("job", e.name).Msg("previous run still in flight, skipping tick")
		return
	}
	e.state = StateRunning
	e.stats.State = StateRunning
	e.stats.Runs++
	e.stats.LastRun = time.Now()
	e.mu.Unlock()

	runCtx := ctx
	cancel := func() {}
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	started := time.Now()
	err := e.job.Run(runCtx)
	elapsed := time.Since(started)

	e.mu.Lock()
	e.state = StateIdle
	e.stats.State = StateIdle
	switch {
	case err == nil:
		e.stats.LastError = ""
	case runCtx.Err() == context.DeadlineExceeded:
		e.stats.Abandoned++
		e.stats.LastError = err.Error()
	default:
		e.stats.Failures++
		e.stats.LastError = err.Error()
	}
	e.mu.Unlock()

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			log.Error().Err(err).Str("job", e.name).Dur("elapsed", elapsed).Msg("run abandoned at deadline")
		} else {
			log.Error().Err(err).Str("job", e.name).Dur("elapsed", elapsed).Msg("run failed")
		}
		return
	}
	log.Debug().Str("job", e.name).Dur("elapsed", elapsed).Msg("run complete")
}

// RunNow executes a registered job immediately, outside its schedule.
// The same skip-on-overlap guard applies.
func (s *Scheduler) RunNow(ctx context.Context, name string) bool {
	s.mu.Lock()
	var target *jobEntry
	for _, e := range s.jobs {
		if e.name == name {
			target = e
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return false
	}
	s.runJob(ctx, target)
	return true
}

// Stats returns a snapshot of every registered job's run history.
func (s *Scheduler) Stats() []JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStats, 0, len(s.jobs))
	for _, e := range s.jobs {
		e.mu.Lock()
		out = append(out, e.stats)
		e.mu.Unlock()
	}
	return out
}

// Start begins firing schedules. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop halts scheduling and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("scheduler stopped")
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
