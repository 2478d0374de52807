package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atomicvault/vaultpulse/internal/adapters/mq/queue"
	"github.com/atomicvault/vaultpulse/internal/adapters/mq/worker"
	"github.com/atomicvault/vaultpulse/internal/domain/leveling"
	"github.com/atomicvault/vaultpulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeRecorder counts activity per user and levels up on demand.
type fakeRecorder struct {
	mu      sync.Mutex
	counts  map[string]int
	levelUp map[string]bool
	err     error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		counts:  make(map[string]int),
		levelUp: make(map[string]bool),
	}
}

func (r *fakeRecorder) RecordActivity(_ context.Context, userID string) (leveling.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return leveling.Result{}, r.err
	}
	r.counts[userID]++
	res := leveling.Result{UserID: userID, Added: 10}
	if r.levelUp[userID] {
		res.LeveledUp = true
		res.NewLevel = 1
		res.Title = "Newbie Adventurer"
	}
	return res, nil
}

func (r *fakeRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []leveling.Result
}

func (n *fakeNotifier) NotifyLevelUp(_ context.Context, res leveling.Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, res)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func eventually(check func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return check()
}

func TestPool_ProcessesEvents(t *testing.T) {
	Convey("Given a pool over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		recorder := newFakeRecorder()
		notifier := &fakeNotifier{}
		pool := worker.NewPool(3, q, recorder, notifier)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		defer pool.Stop()

		Convey("When events are enqueued", func() {
			for i := 0; i < 20; i++ {
				ok := q.Enqueue(ctx, worker.Event{
					EventID: fmt.Sprintf("e%d", i),
					UserID:  fmt.Sprintf("u%d", i%4),
				})
				So(ok, ShouldBeTrue)
			}

			Convey("Then every event reaches the recorder", func() {
				So(eventually(func() bool { return recorder.total() == 20 }), ShouldBeTrue)
				So(notifier.count(), ShouldEqual, 0)
			})
		})
	})
}

func TestPool_DispatchesLevelUps(t *testing.T) {
	Convey("Given a recorder that levels a user up", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		recorder := newFakeRecorder()
		recorder.levelUp["hero"] = true
		notifier := &fakeNotifier{}
		pool := worker.NewPool(1, q, recorder, notifier)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		defer pool.Stop()

		Convey("When that user's event is processed", func() {
			So(q.Enqueue(ctx, worker.Event{EventID: "e1", UserID: "hero"}), ShouldBeTrue)

			Convey("Then exactly one notification fires", func() {
				So(eventually(func() bool { return notifier.count() == 1 }), ShouldBeTrue)
				notifier.mu.Lock()
				res := notifier.calls[0]
				notifier.mu.Unlock()
				So(res.Title, ShouldEqual, "Newbie Adventurer")
			})
		})
	})
}

func TestPool_Size(t *testing.T) {
	Convey("Given pools of various sizes", t, func() {
		q := queue.NewInMemoryQueue()
		recorder := newFakeRecorder()
		notifier := &fakeNotifier{}

		So(worker.NewPool(5, q, recorder, notifier).Size(), ShouldEqual, 5)

		Convey("Then a non-positive count falls back to the default", func() {
			So(worker.NewPool(0, q, recorder, notifier).Size(), ShouldBeGreaterThan, 0)
		})
	})
}
