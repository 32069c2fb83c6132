package service_test

import (
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/proofsheet/tablo/internal/clock"
	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/service"
)

func newQueue(t *testing.T) (*service.SelectionQueue, *fakeSaver, *clock.Manual, *recordingNotifier) {
	t.Helper()
	saver := newFakeSaver()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	notifier := &recordingNotifier{}
	q := service.NewSelectionQueue(saver, clk, notifier, service.DefaultQueueConfig(), nil)
	return q, saver, clk, notifier
}

func TestQueueLastWriteWins(t *testing.T) {
	q, saver, clk, _ := newQueue(t)

	for i := 1; i <= 5; i++ {
		q.Enqueue(1, []int{i, i + 10}, domain.StepClaiming)
		clk.Advance(100 * time.Millisecond)
	}
	if !q.Status().HasUnsaved {
		t.Fatal("pending payload should be reported as unsaved")
	}
	clk.Advance(199 * time.Millisecond)
	saver.none(t)

	clk.Advance(time.Millisecond)
	call := saver.next(t)
	if call.step != domain.StepClaiming || !slices.Equal(call.ids, []int{5, 15}) {
		t.Fatalf("dispatched %+v, want last payload", call)
	}
	if st := q.Status(); !st.IsSaving || st.HasUnsaved {
		t.Fatalf("status during save = %+v", st)
	}
	call.reply <- ok()
	q.Wait()
	saver.none(t)

	st := q.Status()
	if st.IsSaving || st.LastError != nil || st.LastSaveTime.IsZero() {
		t.Fatalf("status after save = %+v", st)
	}
}

func TestQueueScenarioA(t *testing.T) {
	q, saver, clk, _ := newQueue(t)
	var sel []int
	for _, id := range []int{1, 3, 5} {
		sel = append(sel, id)
		q.Enqueue(42, sel, domain.StepClaiming)
	}
	clk.Advance(300 * time.Millisecond)
	call := saver.next(t)
	if call.gallery != 42 || !slices.Equal(call.ids, []int{1, 3, 5}) {
		t.Fatalf("call = %+v", call)
	}
	call.reply <- ok()
	q.Wait()
	saver.none(t)
}

func TestQueueSerializesSaves(t *testing.T) {
	q, saver, clk, _ := newQueue(t)

	q.Enqueue(1, []int{1}, domain.StepRetouch)
	clk.Advance(300 * time.Millisecond)
	first := saver.next(t)

	q.Enqueue(1, []int{1, 2}, domain.StepRetouch)
	q.Enqueue(1, []int{1, 2, 3}, domain.StepRetouch)
	clk.Advance(300 * time.Millisecond)
	saver.none(t)
	if st := q.Status(); !st.HasUnsaved || !st.IsSaving {
		t.Fatalf("held payload status = %+v", st)
	}

	first.reply <- ok()
	second := saver.next(t)
	if !slices.Equal(second.ids, []int{1, 2, 3}) {
		t.Fatalf("second save = %v", second.ids)
	}
	second.reply <- ok()
	q.Wait()

	if m := saver.maxInFlight.Load(); m != 1 {
		t.Fatalf("max concurrent saves = %d", m)
	}
}

func TestQueueHeldPayloadWaitsForDebounce(t *testing.T) {
	q, saver, clk, _ := newQueue(t)

	q.Enqueue(1, []int{1}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)
	first := saver.next(t)

	q.Enqueue(1, []int{2}, domain.StepClaiming)
	clk.Advance(100 * time.Millisecond)
	first.reply <- ok()
	q.Wait()
	saver.none(t)

	clk.Advance(200 * time.Millisecond)
	second := saver.next(t)
	if !slices.Equal(second.ids, []int{2}) {
		t.Fatalf("second save = %v", second.ids)
	}
	second.reply <- ok()
	q.Wait()
}

func TestQueueRetriesTransientFailures(t *testing.T) {
	q, saver, clk, notifier := newQueue(t)

	q.Enqueue(1, []int{4}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)

	c1 := saver.next(t)
	c1.reply <- saveReply{err: domain.ErrTimeout}
	c2 := saver.advanceUntilCall(t, clk, 3*time.Second)
	c2.reply <- saveReply{err: domain.ErrServerOffline}
	c3 := saver.advanceUntilCall(t, clk, 3*time.Second)
	c3.reply <- ok()
	q.Wait()

	if c1.key == "" || c1.key != c2.key || c2.key != c3.key {
		t.Fatalf("idempotency keys differ across retries: %q %q %q", c1.key, c2.key, c3.key)
	}
	st := q.Status()
	if st.LastError != nil || st.LastSaveTime.IsZero() {
		t.Fatalf("status after recovered save = %+v", st)
	}
	if notifier.count(domain.ToastError) != 0 {
		t.Fatal("recovered save must not toast an error")
	}
}

func TestQueueGivesUpAfterRetryBudget(t *testing.T) {
	q, saver, clk, notifier := newQueue(t)

	q.Enqueue(1, []int{4}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)

	saver.next(t).reply <- saveReply{err: domain.ErrTimeout}
	saver.advanceUntilCall(t, clk, 3*time.Second).reply <- saveReply{err: domain.ErrTimeout}
	saver.advanceUntilCall(t, clk, 3*time.Second).reply <- saveReply{err: domain.ErrTimeout}
	q.Wait()

	st := q.Status()
	if !errors.Is(st.LastError, domain.ErrTimeout) || !st.LastSaveTime.IsZero() || st.IsSaving {
		t.Fatalf("status after exhausted retries = %+v", st)
	}
	if notifier.count(domain.ToastError) != 1 {
		t.Fatalf("toasts = %+v", notifier.all())
	}

	clk.Advance(10 * time.Second)
	saver.none(t)
}

func TestQueueDoesNotRetryPermanentErrors(t *testing.T) {
	q, saver, clk, notifier := newQueue(t)

	q.Enqueue(1, []int{4}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)
	saver.next(t).reply <- saveReply{err: &domain.APIError{Status: http.StatusForbidden}}
	q.Wait()

	clk.Advance(5 * time.Second)
	saver.none(t)
	if !errors.Is(q.Status().LastError, domain.ErrForbidden) {
		t.Fatalf("last error = %v", q.Status().LastError)
	}
	toasts := notifier.all()
	if len(toasts) != 1 || toasts[0].Message != domain.MsgFinalized {
		t.Fatalf("toasts = %+v", toasts)
	}
}

func TestQueueAttemptTimeout(t *testing.T) {
	q, saver, clk, _ := newQueue(t)

	q.Enqueue(1, []int{4}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)
	first := saver.next(t)

	clk.Advance(15 * time.Second)
	<-first.ctx.Done()

	second := saver.advanceUntilCall(t, clk, 3*time.Second)
	second.reply <- ok()
	q.Wait()
	if q.Status().LastError != nil {
		t.Fatalf("last error = %v", q.Status().LastError)
	}
}

func TestQueueTabloDispatch(t *testing.T) {
	t.Run("single id replaces", func(t *testing.T) {
		q, saver, clk, _ := newQueue(t)
		q.Enqueue(1, []int{7}, domain.StepTablo)
		q.Enqueue(1, []int{9}, domain.StepTablo)
		clk.Advance(300 * time.Millisecond)
		call := saver.next(t)
		if call.clear || !slices.Equal(call.ids, []int{9}) {
			t.Fatalf("call = %+v", call)
		}
		call.reply <- ok()
		q.Wait()
	})

	t.Run("empty clears", func(t *testing.T) {
		q, saver, clk, _ := newQueue(t)
		q.Enqueue(1, nil, domain.StepTablo)
		clk.Advance(300 * time.Millisecond)
		call := saver.next(t)
		if !call.clear {
			t.Fatalf("call = %+v, want clear", call)
		}
		call.reply <- ok()
		q.Wait()
	})

	t.Run("several ids are a no-op", func(t *testing.T) {
		q, saver, clk, _ := newQueue(t)
		q.Enqueue(1, []int{1, 2}, domain.StepTablo)
		clk.Advance(300 * time.Millisecond)
		saver.none(t)
		st := q.Status()
		if st.HasUnsaved || st.IsSaving || !st.LastSaveTime.IsZero() {
			t.Fatalf("status = %+v", st)
		}
	})

	t.Run("completed is a no-op", func(t *testing.T) {
		q, saver, clk, _ := newQueue(t)
		q.Enqueue(1, []int{1}, domain.StepCompleted)
		clk.Advance(300 * time.Millisecond)
		saver.none(t)
	})
}

func TestQueueResetDetachesInFlightSave(t *testing.T) {
	q, saver, clk, notifier := newQueue(t)

	q.Enqueue(1, []int{1}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)
	call := saver.next(t)

	q.Enqueue(1, []int{1, 2}, domain.StepClaiming)
	q.Reset()
	if st := q.Status(); st.HasUnsaved || st.IsSaving {
		t.Fatalf("status after reset = %+v", st)
	}
	if call.ctx.Err() != nil {
		t.Fatal("reset must not abort a dispatched request")
	}

	call.reply <- saveReply{res: &domain.SaveResult{CascadeMessage: "late"}}
	q.Wait()
	clk.Advance(time.Second)
	saver.none(t)

	if st := q.Status(); !st.LastSaveTime.IsZero() {
		t.Fatal("late response must be ignored")
	}
	if len(notifier.all()) != 0 {
		t.Fatalf("late response produced toasts: %+v", notifier.all())
	}
}

func TestQueueResetCancelsRetryWait(t *testing.T) {
	q, saver, clk, _ := newQueue(t)
	q.Enqueue(1, []int{1}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)
	saver.next(t).reply <- saveReply{err: domain.ErrServerOffline}

	waitFor(t, "retry wait", func() bool { return clk.Pending() > 0 })
	q.Reset()
	q.Wait()
	clk.Advance(5 * time.Second)
	saver.none(t)
}

func TestQueueCascadeNotifiesAndCallsHook(t *testing.T) {
	q, saver, clk, notifier := newQueue(t)
	var saved []domain.PendingSave
	q.OnSaved(func(p domain.PendingSave, res *domain.SaveResult) {
		saved = append(saved, p)
	})
	var statuses []service.QueueStatus
	q.Subscribe(func(st service.QueueStatus) { statuses = append(statuses, st) })

	q.Enqueue(1, []int{1}, domain.StepClaiming)
	clk.Advance(300 * time.Millisecond)
	saver.next(t).reply <- saveReply{res: &domain.SaveResult{
		CascadeDeleted: &domain.CascadeDeleted{Retouch: []int{2}},
		CascadeMessage: "1 photo removed from retouch",
	}}
	q.Wait()

	toasts := notifier.all()
	if len(toasts) != 1 || toasts[0].Level != domain.ToastInfo || toasts[0].Message != "1 photo removed from retouch" {
		t.Fatalf("toasts = %+v", toasts)
	}
	if len(saved) != 1 || !slices.Equal(saved[0].PhotoIDs, []int{1}) {
		t.Fatalf("saved hook = %+v", saved)
	}
	if len(statuses) < 3 {
		t.Fatalf("status notifications = %d", len(statuses))
	}
}

// lateClock never cancels a timer, like time.AfterFunc whose Stop lost the
// race against the timer firing. Tests fire timers by hand.
type lateClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []func()
}

type lateTimer struct{}

func (lateTimer) Stop() bool { return false }

func (c *lateClock) Now() time.Time { return c.now }

func (c *lateClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	c.timers = append(c.timers, f)
	c.mu.Unlock()
	return lateTimer{}
}

// fire runs the i-th scheduled task
func (c *lateClock) fire(i int) {
	c.mu.Lock()
	f := c.timers[i]
	c.mu.Unlock()
	f()
}

func (c *lateClock) scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func TestQueueIgnoresSupersededTimer(t *testing.T) {
	saver := newFakeSaver()
	clk := &lateClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	q := service.NewSelectionQueue(saver, clk, nil, service.DefaultQueueConfig(), nil)

	q.Enqueue(1, []int{1}, domain.StepClaiming)
	q.Enqueue(1, []int{1, 2}, domain.StepClaiming)
	if n := clk.scheduled(); n != 2 {
		t.Fatalf("timers = %d", n)
	}

	// The first timer fires after the second Enqueue
	clk.fire(0)
	saver.none(t)
	if !q.Status().HasUnsaved {
		t.Fatal("payload dispatched before its own debounce elapsed")
	}

	// A third enqueue is not cut short by the second timer either
	q.Enqueue(1, []int{1, 2, 3}, domain.StepClaiming)
	clk.fire(1)
	saver.none(t)

	clk.fire(2)
	call := saver.next(t)
	if !slices.Equal(call.ids, []int{1, 2, 3}) {
		t.Fatalf("dispatched %v", call.ids)
	}
	call.reply <- ok()
	q.Wait()
}

func TestQueueResetIgnoresLateTimer(t *testing.T) {
	saver := newFakeSaver()
	clk := &lateClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	q := service.NewSelectionQueue(saver, clk, nil, service.DefaultQueueConfig(), nil)

	q.Enqueue(1, []int{4}, domain.StepRetouch)
	q.Reset()
	clk.fire(0)
	saver.none(t)
	if q.Status().HasUnsaved {
		t.Fatal("reset left a pending payload")
	}
}
