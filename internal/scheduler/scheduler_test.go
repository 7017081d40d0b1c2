package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-live/agora/pkg/models"
)

type blockingJob struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int64
}

func newBlockingJob() *blockingJob {
	return &blockingJob{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (j *blockingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	j.started <- struct{}{}
	select {
	case <-j.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := New()
	job := newBlockingJob()
	require.NoError(t, s.AddJob("pipeline", "@every 1h", 0, job))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunNow(context.Background(), "pipeline")
	}()
	<-job.started

	// A tick firing while the first run is in flight is skipped.
	assert.True(t, s.RunNow(context.Background(), "pipeline"))
	assert.Equal(t, int64(1), job.runs.Load())

	close(job.release)
	wg.Wait()

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Runs)
	assert.Equal(t, int64(1), stats[0].Skips)
	assert.Equal(t, StateIdle, stats[0].State)
}

func TestScheduler_AbandonsRunAtDeadline(t *testing.T) {
	s := New()
	job := newBlockingJob()
	require.NoError(t, s.AddJob("pipeline", "@every 1h", 20*time.Millisecond, job))

	require.True(t, s.RunNow(context.Background(), "pipeline"))

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Abandoned)
	assert.Equal(t, StateIdle, stats[0].State, "abandoned run must not wedge the job")
	assert.NotEmpty(t, stats[0].LastError)

	// The next tick runs normally.
	close(job.release)
	require.True(t, s.RunNow(context.Background(), "pipeline"))
	<-job.started

	stats = s.Stats()
	assert.Equal(t, int64(2), stats[0].Runs)
}

func TestScheduler_RecordsFailures(t *testing.T) {
	s := New()
	require.NoError(t, s.AddJob("ingest", "@every 1h", 0, jobFunc(func(ctx context.Context) error {
		return assert.AnError
	})))

	require.True(t, s.RunNow(context.Background(), "ingest"))

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Failures)
	assert.Equal(t, assert.AnError.Error(), stats[0].LastError)
}

func TestScheduler_SuccessClearsLastError(t *testing.T) {
	s := New()
	var fail atomic.Bool
	fail.Store(true)
	require.NoError(t, s.AddJob("ingest", "@every 1h", 0, jobFunc(func(ctx context.Context) error {
		if fail.Load() {
			return assert.AnError
		}
		return nil
	})))

	s.RunNow(context.Background(), "ingest")
	fail.Store(false)
	s.RunNow(context.Background(), "ingest")

	stats := s.Stats()
	assert.Empty(t, stats[0].LastError)
	assert.Equal(t, int64(2), stats[0].Runs)
}

func TestScheduler_RunNowUnknownJob(t *testing.T) {
	s := New()
	assert.False(t, s.RunNow(context.Background(), "missing"))
}

func TestScheduler_RejectsBadCronSpec(t *testing.T) {
	s := New()
	err := s.AddJob("bad", "not a cron spec", 0, jobFunc(func(ctx context.Context) error { return nil }))
	assert.Error(t, err)
}

// jobFunc adapts a function to the Job interface.
type jobFunc func(ctx context.Context) error

func (f jobFunc) Run(ctx context.Context) error { return f(ctx) }

type recordingReconciler struct {
	topics [][]models.Topic
}

func (r *recordingReconciler) Reconcile(ctx context.Context, topics []models.Topic) (models.ReconcileResult, error) {
	r.topics = append(r.topics, topics)
	return models.ReconcileResult{}, nil
}

type staticSource struct{ items []models.Item }

func (s *staticSource) RecentPopularItems(ctx context.Context, window time.Duration) ([]models.Item, error) {
	return s.items, nil
}

type staticClusterer struct{ topics []models.Topic }

func (s *staticClusterer) Cluster(ctx context.Context, candidates []models.Item, now time.Time) ([]models.Topic, error) {
	return s.topics, nil
}

func TestPipeline_RunsFullCycle(t *testing.T) {
	source := &staticSource{items: []models.Item{{ID: 1}, {ID: 2}, {ID: 3}}}
	clusterer := &staticClusterer{topics: []models.Topic{{Label: "a-b", ItemIDs: []int64{1, 2}}}}
	reconciler := &recordingReconciler{}

	p := NewPipeline(source, clusterer, reconciler, time.Hour)
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, reconciler.topics, 1)
	assert.Equal(t, clusterer.topics, reconciler.topics[0])
}

func TestPipeline_EmptyTopicsStillReconcile(t *testing.T) {
	// Zero topics is the full-reset signal; the reconciler must see it.
	reconciler := &recordingReconciler{}
	p := NewPipeline(&staticSource{}, &staticClusterer{}, reconciler, time.Hour)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, reconciler.topics, 1)
	assert.Empty(t, reconciler.topics[0])
}
