package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-live/agora/pkg/models"
)

// CandidateSource supplies the clustering engine's input batch.
type CandidateSource interface {
	RecentPopularItems(ctx context.Context, window time.Duration) ([]models.Item, error)
}

// Clusterer proposes topics from a candidate batch.
type Clusterer interface {
	Cluster(ctx context.Context, candidates []models.Item, now time.Time) ([]models.Topic, error)
}

// CycleReconciler applies a cycle's topics to the room set.
type CycleReconciler interface {
	Reconcile(ctx context.Context, topics []models.Topic) (models.ReconcileResult, error)
}

// Pipeline is one cluster→reconcile cycle over the trailing item window.
type Pipeline struct {
	source     CandidateSource
	clusterer  Clusterer
	reconciler CycleReconciler
	window     time.Duration
}

// NewPipeline creates the reconciliation pipeline.
func NewPipeline(source CandidateSource, clusterer Clusterer, reconciler CycleReconciler, window time.Duration) *Pipeline {
	return &Pipeline{
		source:     source,
		clusterer:  clusterer,
		reconciler: reconciler,
		window:     window,
	}
}

// Run executes one cycle. Collaborator failures abort the cycle with no
// partial state committed; the next tick starts from scratch.
func (p *Pipeline) Run(ctx context.Context) error {
	now := time.Now()

	candidates, err := p.source.RecentPopularItems(ctx, p.window)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}

	topics, err := p.clusterer.Cluster(ctx, candidates, now)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}

	if _, err := p.reconciler.Reconcile(ctx, topics); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return nil
}
