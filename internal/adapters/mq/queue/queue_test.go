package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/atomicvault/vaultpulse/internal/adapters/mq/queue"
	"github.com/atomicvault/vaultpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue_EnqueueDequeue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		ctx := context.Background()

		Convey("When enqueuing within capacity", func() {
			ok := q.Enqueue(ctx, model.ActivityEvent{EventID: "e1", UserID: "u1"})
			So(ok, ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)

			Convey("Then the event comes back out", func() {
				ch := q.Dequeue(ctx)
				select {
				case ev := <-ch:
					So(ev.EventID, ShouldEqual, "e1")
				case <-time.After(time.Second):
					t.Fatal("timed out waiting for event")
				}
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, model.ActivityEvent{EventID: "e1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.ActivityEvent{EventID: "e2"}), ShouldBeTrue)

			Convey("Then further enqueues are rejected", func() {
				So(q.Enqueue(ctx, model.ActivityEvent{EventID: "e3"}), ShouldBeFalse)
			})
		})
	})
}

func TestInMemoryQueue_Close(t *testing.T) {
	Convey("Given a queue with pending events", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			So(q.Enqueue(ctx, model.ActivityEvent{EventID: fmt.Sprintf("e%d", i)}), ShouldBeTrue)
		}

		Convey("When closing the queue", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then pending events still drain", func() {
				ch := q.Dequeue(ctx)
				count := 0
				for range ch {
					count++
				}
				So(count, ShouldEqual, 3)
			})

			Convey("And new enqueues are rejected", func() {
				So(q.Enqueue(ctx, model.ActivityEvent{EventID: "late"}), ShouldBeFalse)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
