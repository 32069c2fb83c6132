package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proofsheet/tablo/internal/clock"
	"github.com/proofsheet/tablo/internal/domain"
)

// SelectionSaver persists a step's selection. WorkflowService implements it.
type SelectionSaver interface {
	SaveClaiming(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error)
	SaveRetouch(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error)
	SaveTablo(ctx context.Context, galleryID int, photoID int) (*domain.SaveResult, error)
	ClearTablo(ctx context.Context, galleryID int) (*domain.SaveResult, error)
}

// QueueConfig holds the save queue timings
type QueueConfig struct {
	Debounce   time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// DefaultQueueConfig returns the standard save timings
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Debounce:   300 * time.Millisecond,
		MaxRetries: 2,
		RetryDelay: time.Second,
		Timeout:    15 * time.Second,
	}
}

// QueueStatus is the observable state of the save queue
type QueueStatus struct {
	HasUnsaved   bool
	IsSaving     bool
	LastSaveTime time.Time
	LastError    error
}

// SavedFunc is called after a payload was saved successfully
type SavedFunc func(saved domain.PendingSave, res *domain.SaveResult)

// SelectionQueue is a debounced last-write-wins save queue. It holds at
// most one pending payload, keeps at most one save in flight, and retries
// transient failures a bounded number of times.
type SelectionQueue struct {
	saver    SelectionSaver
	clock    clock.Clock
	notifier domain.Notifier
	logger   *slog.Logger
	cfg      QueueConfig

	mu         sync.Mutex
	pending    *domain.PendingSave
	pendingKey string
	inFlight   bool
	timer      clock.Timer
	timerSeq   uint64
	due        bool
	lastSaved  time.Time
	lastErr    error
	generation uint64
	life       context.Context
	endLife    context.CancelFunc
	onSaved    SavedFunc
	subs       map[int]func(QueueStatus)
	nextSub    int

	running sync.WaitGroup
}

// NewSelectionQueue creates a queue. Nil clock, notifier or logger fall
// back to the wall clock, a no-op notifier and slog.Default().
func NewSelectionQueue(saver SelectionSaver, c clock.Clock, notifier domain.Notifier, cfg QueueConfig, logger *slog.Logger) *SelectionQueue {
	if c == nil {
		c = clock.Real()
	}
	if notifier == nil {
		notifier = domain.NoOpNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultQueueConfig().Debounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultQueueConfig().Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	q := &SelectionQueue{
		saver:    saver,
		clock:    c,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		subs:     make(map[int]func(QueueStatus)),
	}
	q.life, q.endLife = context.WithCancel(context.Background())
	return q
}

// OnSaved registers fn to run after each successful save
func (q *SelectionQueue) OnSaved(fn SavedFunc) {
	q.mu.Lock()
	q.onSaved = fn
	q.mu.Unlock()
}

// Subscribe registers fn to receive every status change.
// The returned func removes the subscription.
func (q *SelectionQueue) Subscribe(fn func(QueueStatus)) func() {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// Status returns the current queue state
func (q *SelectionQueue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statusLocked()
}

func (q *SelectionQueue) statusLocked() QueueStatus {
	return QueueStatus{
		HasUnsaved:   q.pending != nil,
		IsSaving:     q.inFlight,
		LastSaveTime: q.lastSaved,
		LastError:    q.lastErr,
	}
}

// Enqueue records photoIDs as the desired selection for step, replacing
// any payload not yet dispatched, and restarts the debounce timer.
func (q *SelectionQueue) Enqueue(galleryID int, photoIDs []int, step domain.Step) {
	ids := make([]int, len(photoIDs))
	copy(ids, photoIDs)

	q.mu.Lock()
	q.pending = &domain.PendingSave{GalleryID: galleryID, PhotoIDs: ids, Step: step}
	q.pendingKey = uuid.NewString()
	q.due = false
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timerSeq++
	seq := q.timerSeq
	q.timer = q.clock.AfterFunc(q.cfg.Debounce, func() { q.debounceElapsed(seq) })
	q.logger.Debug("selection enqueued", "galleryId", galleryID, "step", step, "count", len(ids))
	q.mu.Unlock()

	q.publish()
}

// debounceElapsed runs when timer seq fires. A timer superseded by a later
// Enqueue or a Reset may still fire when its Stop lost the race; it is ignored.
func (q *SelectionQueue) debounceElapsed(seq uint64) {
	q.mu.Lock()
	if seq != q.timerSeq {
		q.mu.Unlock()
		return
	}
	q.timer = nil
	if q.pending == nil {
		q.mu.Unlock()
		return
	}
	if q.inFlight {
		q.due = true
		q.mu.Unlock()
		return
	}
	q.dispatchLocked()
	q.mu.Unlock()
	q.publish()
}

// dispatchLocked consumes the pending payload. Payloads that need no
// request (tablo with several ids, completed) are dropped silently.
func (q *SelectionQueue) dispatchLocked() {
	p := *q.pending
	key := q.pendingKey
	q.pending = nil
	q.pendingKey = ""
	q.due = false

	if !needsRequest(p) {
		q.logger.Debug("selection needs no request", "step", p.Step, "count", len(p.PhotoIDs))
		return
	}

	q.inFlight = true
	gen := q.generation
	q.running.Add(1)
	go q.run(q.life, gen, p, key)
}

func needsRequest(p domain.PendingSave) bool {
	switch p.Step {
	case domain.StepClaiming, domain.StepRetouch:
		return true
	case domain.StepTablo:
		return len(p.PhotoIDs) <= 1
	}
	return false
}

// run performs the attempts for one payload. life only bounds the retry
// waits; a request already sent is never aborted by Reset.
func (q *SelectionQueue) run(life context.Context, gen uint64, p domain.PendingSave, key string) {
	defer q.running.Done()

	ctx := domain.WithIdempotencyKey(context.Background(), key)
	attempts := 1 + q.cfg.MaxRetries

	var (
		res *domain.SaveResult
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		q.logger.Debug("dispatching save", "step", p.Step, "attempt", attempt, "key", key)
		res, err = q.attempt(ctx, p)
		if err == nil {
			break
		}
		if !domain.IsTransient(err) || attempt == attempts || q.stale(gen) {
			break
		}
		q.logger.Warn("save attempt failed, retrying",
			"error", err,
			"attempt", attempt,
			"max", attempts)
		if err := clock.Sleep(life, q.clock, q.cfg.RetryDelay); err != nil {
			break
		}
		if q.stale(gen) {
			break
		}
	}

	q.settle(gen, p, res, err)
}

func (q *SelectionQueue) attempt(parent context.Context, p domain.PendingSave) (*domain.SaveResult, error) {
	ctx, cancel := clock.WithTimeout(parent, q.clock, q.cfg.Timeout)
	defer cancel()

	var (
		res *domain.SaveResult
		err error
	)
	switch p.Step {
	case domain.StepClaiming:
		res, err = q.saver.SaveClaiming(ctx, p.GalleryID, p.PhotoIDs)
	case domain.StepRetouch:
		res, err = q.saver.SaveRetouch(ctx, p.GalleryID, p.PhotoIDs)
	case domain.StepTablo:
		if len(p.PhotoIDs) == 1 {
			res, err = q.saver.SaveTablo(ctx, p.GalleryID, p.PhotoIDs[0])
		} else {
			res, err = q.saver.ClearTablo(ctx, p.GalleryID)
		}
	}
	if err != nil && clock.TimedOut(ctx) {
		err = fmt.Errorf("%w: save exceeded %s", domain.ErrTimeout, q.cfg.Timeout)
	}
	if err == nil && res == nil {
		res = &domain.SaveResult{}
	}
	return res, err
}

func (q *SelectionQueue) stale(gen uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return gen != q.generation
}

func (q *SelectionQueue) settle(gen uint64, p domain.PendingSave, res *domain.SaveResult, err error) {
	q.mu.Lock()
	if gen != q.generation {
		q.mu.Unlock()
		q.logger.Debug("discarding save result after reset", "step", p.Step)
		return
	}
	q.inFlight = false
	if err != nil {
		q.lastErr = err
	} else {
		q.lastErr = nil
		q.lastSaved = q.clock.Now()
	}
	if q.pending != nil && q.due {
		q.dispatchLocked()
	}
	onSaved := q.onSaved
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("save failed", "error", err, "step", p.Step, "galleryId", p.GalleryID)
		q.notifier.Notify(domain.Toast{
			Level:   domain.ToastError,
			Title:   "Save failed",
			Message: domain.UserMessage(err),
		})
	} else {
		q.logger.Debug("selection saved", "step", p.Step, "count", len(p.PhotoIDs))
		if res.HasCascade() {
			msg := res.CascadeMessage
			if msg == "" {
				msg = "Selections in later steps were updated."
			}
			q.notifier.Notify(domain.Toast{Level: domain.ToastInfo, Title: "Updated", Message: msg})
		}
		if onSaved != nil {
			onSaved(p, res)
		}
	}
	q.publish()
}

// Reset drops the pending payload and timer and detaches any save in
// flight; its result will be ignored.
func (q *SelectionQueue) Reset() {
	q.mu.Lock()
	q.generation++
	q.endLife()
	q.life, q.endLife = context.WithCancel(context.Background())
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.timerSeq++
	q.pending = nil
	q.pendingKey = ""
	q.due = false
	q.inFlight = false
	q.mu.Unlock()
	q.publish()
}

// Wait blocks until every dispatched save goroutine has returned
func (q *SelectionQueue) Wait() {
	q.running.Wait()
}

func (q *SelectionQueue) publish() {
	q.mu.Lock()
	status := q.statusLocked()
	subs := make([]func(QueueStatus), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()
	for _, fn := range subs {
		fn(status)
	}
}
