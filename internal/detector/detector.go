// Package detector orchestrates duplicate detection runs.
//
// Every new task gets a durable detection record before any external call is
// made; workers then walk the record through the state machine
// (embedding, matching, resolving) and either group automatically, park the
// run for review, or conclude there are no duplicates. A crashed or
// restarted process picks unfinished runs back up from the last recorded
// state.
package detector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/groupthink/groupthink/internal/config"
	"github.com/groupthink/groupthink/internal/embedding"
	"github.com/groupthink/groupthink/internal/grouping"
	"github.com/groupthink/groupthink/internal/storage"
	"github.com/groupthink/groupthink/internal/types"
)

// Detector runs the duplicate detection pipeline
type Detector struct {
	store    storage.Storage
	gen      embedding.Generator
	groups   *grouping.Manager
	notifier Notifier
	cfg      config.Config

	queue  chan string // detection IDs awaiting processing
	cancel context.CancelFunc
	eg     *errgroup.Group

	mu      sync.Mutex
	started bool
}

// New creates a detector. notifier may be nil, in which case outcomes are
// logged.
func New(store storage.Storage, gen embedding.Generator, groups *grouping.Manager, notifier Notifier, cfg config.Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Detector{
		store:    store,
		gen:      gen,
		groups:   groups,
		notifier: notifier,
		cfg:      cfg,
		queue:    make(chan string, cfg.QueueSize),
	}, nil
}

// Start launches the detection workers and re-enqueues unfinished runs from
// a previous process lifetime.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("detector already started")
	}
	d.started = true
	d.mu.Unlock()

	workerCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.eg, workerCtx = errgroup.WithContext(workerCtx)

	for i := 0; i < d.cfg.Workers; i++ {
		d.eg.Go(func() error {
			d.workerLoop(workerCtx)
			return nil
		})
	}

	if err := d.Resume(ctx); err != nil {
		log.Printf("[DETECT] resume scan failed: %v", err)
	}

	log.Printf("[DETECT] started %d workers (floor=%.2f auto=%.2f topK=%d)",
		d.cfg.Workers, d.cfg.SimilarityFloor, d.cfg.AutoGroupThreshold, d.cfg.TopK)
	return nil
}

// Stop shuts the workers down and waits for in-flight runs to finish their
// current stage.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	d.cancel()
	_ = d.eg.Wait()
	d.started = false
	log.Printf("[DETECT] stopped")
}

func (d *Detector) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.queue:
			if err := d.process(ctx, id); err != nil {
				// Log and continue; the run's own record carries its failure
				log.Printf("[DETECT] detection %s: %v", id, err)
			}
		}
	}
}

// Submit records a new task and kicks off duplicate detection for it. The
// detection record is persisted before this returns; the pipeline itself
// runs asynchronously. Task creation never fails because the provider is
// down or the queue is full.
func (d *Detector) Submit(ctx context.Context, ownerID, description string) (*types.Task, *types.DuplicateDetection, error) {
	description = strings.TrimSpace(description)
	now := time.Now()

	task := &types.Task{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.store.CreateTask(ctx, task); err != nil {
		return nil, nil, fmt.Errorf("failed to create task: %w", err)
	}

	det := &types.DuplicateDetection{
		ID:        uuid.New().String(),
		TaskID:    task.ID,
		OwnerID:   ownerID,
		State:     types.DetectionStateCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.store.CreateDetection(ctx, det); err != nil {
		return nil, nil, fmt.Errorf("failed to create detection: %w", err)
	}

	d.enqueue(det.ID)
	return task, det, nil
}

// enqueue hands a detection to the workers without blocking. A full queue is
// not an error: the run is already durable and the next resume scan will
// pick it up.
func (d *Detector) enqueue(id string) {
	select {
	case d.queue <- id:
	default:
		log.Printf("[DETECT] queue full, detection %s deferred to resume scan", id)
	}
}

// Resume re-enqueues every run whose state machine still has work to do
func (d *Detector) Resume(ctx context.Context) error {
	unfinished, err := d.store.GetUnfinishedDetections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unfinished detections: %w", err)
	}
	for _, det := range unfinished {
		d.enqueue(det.ID)
	}
	if len(unfinished) > 0 {
		log.Printf("[DETECT] resumed %d unfinished detections", len(unfinished))
	}
	return nil
}

// descriptionTooShort reports whether the text is below the minimum length
// for meaningful similarity comparison.
func (d *Detector) descriptionTooShort(description string) bool {
	return utf8.RuneCountInString(description) < d.cfg.MinDescriptionLength
}
