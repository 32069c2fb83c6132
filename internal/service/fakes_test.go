package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/proofsheet/tablo/internal/clock"
	"github.com/proofsheet/tablo/internal/domain"
)

type saveReply struct {
	res *domain.SaveResult
	err error
}

type saveCall struct {
	step    domain.Step
	gallery int
	ids     []int
	clear   bool
	key     string
	ctx     context.Context
	reply   chan saveReply
}

// fakeSaver hands every call to the test through calls and blocks until
// the test replies or the call's context ends.
type fakeSaver struct {
	calls       chan saveCall
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{calls: make(chan saveCall, 16)}
}

func (f *fakeSaver) do(ctx context.Context, c saveCall) (*domain.SaveResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	c.key, _ = domain.IdempotencyKey(ctx)
	c.ctx = ctx
	c.reply = make(chan saveReply, 1)
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeSaver) SaveClaiming(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	return f.do(ctx, saveCall{step: domain.StepClaiming, gallery: galleryID, ids: photoIDs})
}

func (f *fakeSaver) SaveRetouch(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	return f.do(ctx, saveCall{step: domain.StepRetouch, gallery: galleryID, ids: photoIDs})
}

func (f *fakeSaver) SaveTablo(ctx context.Context, galleryID int, photoID int) (*domain.SaveResult, error) {
	return f.do(ctx, saveCall{step: domain.StepTablo, gallery: galleryID, ids: []int{photoID}})
}

func (f *fakeSaver) ClearTablo(ctx context.Context, galleryID int) (*domain.SaveResult, error) {
	return f.do(ctx, saveCall{step: domain.StepTablo, gallery: galleryID, clear: true})
}

func (f *fakeSaver) next(t *testing.T) saveCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a save call")
		return saveCall{}
	}
}

func (f *fakeSaver) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected save call: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

// advanceUntilCall moves clk forward in small steps until the saver sees a
// call, so retry waits registered from other goroutines are not missed.
func (f *fakeSaver) advanceUntilCall(t *testing.T, clk *clock.Manual, limit time.Duration) saveCall {
	t.Helper()
	const step = 100 * time.Millisecond
	for elapsed := time.Duration(0); elapsed <= limit; elapsed += step {
		select {
		case c := <-f.calls:
			return c
		case <-time.After(5 * time.Millisecond):
		}
		clk.Advance(step)
	}
	t.Fatalf("no save call within %s of clock time", limit)
	return saveCall{}
}

func ok() saveReply {
	return saveReply{res: &domain.SaveResult{Message: "ok"}}
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []domain.Toast
}

func (n *recordingNotifier) Notify(t domain.Toast) {
	n.mu.Lock()
	n.toasts = append(n.toasts, t)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []domain.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Toast, len(n.toasts))
	copy(out, n.toasts)
	return out
}

func (n *recordingNotifier) count(level domain.ToastLevel) int {
	c := 0
	for _, t := range n.all() {
		if t.Level == level {
			c++
		}
	}
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// fakeRepo is an in-memory studio backend. Saves answer immediately.
type fakeRepo struct {
	mu       sync.Mutex
	step     domain.Step
	data     map[domain.Step]*domain.StepData
	calls    []string
	saves    []domain.PendingSave
	errs     map[string]error
	saveRes  *domain.SaveResult
	finalize *domain.StepData
	onLoad   func() // runs after LoadStepData built its answer
}

func newFakeRepo(step domain.Step, data ...*domain.StepData) *fakeRepo {
	r := &fakeRepo{step: step, data: map[domain.Step]*domain.StepData{}, errs: map[string]error{}}
	for _, d := range data {
		r.data[d.CurrentStep] = d
	}
	return r
}

func (r *fakeRepo) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	return r.errs[name]
}

func (r *fakeRepo) setErr(name string, err error) {
	r.mu.Lock()
	r.errs[name] = err
	r.mu.Unlock()
}

func (r *fakeRepo) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRepo) savedPayloads() []domain.PendingSave {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PendingSave(nil), r.saves...)
}

// current returns a copy of the data for step, or for the current step
// when step is empty.
func (r *fakeRepo) current(step domain.Step) *domain.StepData {
	r.mu.Lock()
	defer r.mu.Unlock()
	if step == "" {
		step = r.step
	}
	cp := domain.StepData{CurrentStep: step, SelectedPhotos: []int{}}
	if d, ok := r.data[step]; ok {
		cp = *d
		cp.SelectedPhotos = append([]int{}, d.SelectedPhotos...)
	}
	cp.CurrentStep = step
	return &cp
}

func (r *fakeRepo) move(step domain.Step) *domain.StepData {
	r.mu.Lock()
	r.step = step
	r.mu.Unlock()
	return r.current("")
}

func (r *fakeRepo) LoadStepData(ctx context.Context, galleryID int, step domain.Step) (*domain.StepData, error) {
	if err := r.record("load"); err != nil {
		return nil, err
	}
	d := r.current(step)
	r.mu.Lock()
	hook := r.onLoad
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return d, nil
}

func (r *fakeRepo) setOnLoad(fn func()) {
	r.mu.Lock()
	r.onLoad = fn
	r.mu.Unlock()
}

func (r *fakeRepo) LoadStepDataReadonly(ctx context.Context, galleryID int, step domain.Step) (*domain.StepData, error) {
	if err := r.record("readonly:" + string(step)); err != nil {
		return nil, err
	}
	d := r.current(step)
	d.CurrentStep = step
	return d, nil
}

func (r *fakeRepo) save(name string, p domain.PendingSave) (*domain.SaveResult, error) {
	if err := r.record(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, p)
	if r.saveRes != nil {
		return r.saveRes, nil
	}
	return &domain.SaveResult{Message: "saved"}, nil
}

func (r *fakeRepo) SaveClaiming(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	return r.save("claiming", domain.PendingSave{GalleryID: galleryID, PhotoIDs: photoIDs, Step: domain.StepClaiming})
}

func (r *fakeRepo) SaveRetouch(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	return r.save("retouch", domain.PendingSave{GalleryID: galleryID, PhotoIDs: photoIDs, Step: domain.StepRetouch})
}

func (r *fakeRepo) SaveTablo(ctx context.Context, galleryID int, photoID int) (*domain.SaveResult, error) {
	return r.save("tablo", domain.PendingSave{GalleryID: galleryID, PhotoIDs: []int{photoID}, Step: domain.StepTablo})
}

func (r *fakeRepo) ClearTablo(ctx context.Context, galleryID int) (*domain.SaveResult, error) {
	return r.save("tablo-clear", domain.PendingSave{GalleryID: galleryID, Step: domain.StepTablo})
}

func (r *fakeRepo) NextStep(ctx context.Context, galleryID int) (*domain.StepData, error) {
	if err := r.record("next"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	next, _ := r.step.Next()
	r.mu.Unlock()
	return r.move(next), nil
}

func (r *fakeRepo) PreviousStep(ctx context.Context, galleryID int) (*domain.StepData, error) {
	if err := r.record("previous"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	prev, _ := r.step.Previous()
	r.mu.Unlock()
	return r.move(prev), nil
}

func (r *fakeRepo) MoveToStep(ctx context.Context, galleryID int, target domain.Step) (*domain.StepData, error) {
	if err := r.record("move:" + string(target)); err != nil {
		return nil, err
	}
	return r.move(target), nil
}

func (r *fakeRepo) Finalize(ctx context.Context, galleryID int) (*domain.StepData, error) {
	if err := r.record("finalize"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.step = domain.StepCompleted
	echo := r.finalize
	r.mu.Unlock()
	return echo, nil
}

func (r *fakeRepo) RequestModification(ctx context.Context, galleryID int) (*domain.ModificationResult, error) {
	if err := r.record("modify"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.step = domain.StepTablo
	r.mu.Unlock()
	return &domain.ModificationResult{Success: true, WasFree: true}, nil
}

func photos(ids ...int) []domain.Photo {
	out := make([]domain.Photo, len(ids))
	for i, id := range ids {
		out[i] = domain.Photo{ID: id, Filename: fmt.Sprintf("img_%03d.jpg", id)}
	}
	return out
}

func seq(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

type memFlags struct {
	mu    sync.Mutex
	shown map[string]bool
}

func (f *memFlags) key(projectID int, step domain.Step) string {
	return fmt.Sprintf("%d/%s", projectID, step)
}

func (f *memFlags) IsStepInfoShown(projectID int, step domain.Step) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shown[f.key(projectID, step)]
}

func (f *memFlags) SetStepInfoShown(projectID int, step domain.Step) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shown == nil {
		f.shown = map[string]bool{}
	}
	f.shown[f.key(projectID, step)] = true
	return nil
}

type memSnapshots struct {
	mu   sync.Mutex
	data map[int]*domain.StepData
}

func (m *memSnapshots) GetSnapshot(galleryID int) (*domain.StepData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[galleryID]
	return d, ok
}

func (m *memSnapshots) SaveSnapshot(galleryID int, data *domain.StepData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[int]*domain.StepData{}
	}
	m.data[galleryID] = data
	return nil
}
