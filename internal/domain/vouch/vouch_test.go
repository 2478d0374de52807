package vouch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
	"github.com/atomicvault/vaultpulse/internal/domain/vouch"
	. "github.com/smartystreets/goconvey/convey"
)

// downStore fails every call the way an unreachable backend would.
type downStore struct{}

func errDown(op string) error {
	return fmt.Errorf("%w: %s: connection refused", repository.ErrUnavailable, op)
}

func (downStore) Get(context.Context, string, string) (repository.Record, bool, error) {
	return nil, false, errDown("get")
}

func (downStore) Upsert(context.Context, string, string, repository.Record) error {
	return errDown("upsert")
}

func (downStore) Increment(context.Context, string, string, string, int64) (int64, error) {
	return 0, errDown("increment")
}

func (downStore) Delete(context.Context, string, string) (bool, error) {
	return false, errDown("delete")
}

func (downStore) TopN(context.Context, string, string, int) ([]repository.Entry, error) {
	return nil, errDown("topn")
}

func (downStore) All(context.Context, string) ([]repository.KeyedRecord, error) {
	return nil, errDown("all")
}

func (downStore) Count(context.Context, string) (int, error) {
	return 0, errDown("count")
}

func newService(t *testing.T, opts ...vouch.Option) *vouch.Service {
	t.Helper()
	store, err := repository.NewMemoryStore()
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return vouch.New(store, opts...)
}

func TestService_Give(t *testing.T) {
	Convey("Given a vouch service", t, func() {
		svc := newService(t)
		ctx := context.Background()

		Convey("When one member vouches for another", func() {
			total, err := svc.Give(ctx, "alice", "bob")
			So(err, ShouldBeNil)

			Convey("Then the recipient's total becomes 1", func() {
				So(total, ShouldEqual, 1)
			})

			Convey("And further vouches accumulate", func() {
				total, err := svc.Give(ctx, "carol", "bob")
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 2)
			})
		})

		Convey("When a member vouches for themselves", func() {
			_, err := svc.Give(ctx, "alice", "alice")

			Convey("Then it is rejected and nothing is recorded", func() {
				So(err, ShouldEqual, vouch.ErrSelfVouch)
				count, err := svc.Count(ctx, "alice")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
			})
		})

		Convey("When counting an unknown member", func() {
			count, err := svc.Count(ctx, "nobody")

			Convey("Then the count reads as zero", func() {
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
			})
		})
	})
}

func TestService_StoreDown(t *testing.T) {
	Convey("Given a vouch service over an unreachable store", t, func() {
		svc := vouch.New(downStore{})
		ctx := context.Background()

		Convey("Then counting surfaces the outage instead of a zero total", func() {
			_, err := svc.Count(ctx, "bob")
			So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
		})

		Convey("Then giving a vouch surfaces the outage", func() {
			_, err := svc.Give(ctx, "alice", "bob")
			So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
		})

		Convey("Then the summary surfaces the outage, not an empty ledger", func() {
			_, err := svc.Summary(ctx)
			So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
		})
	})
}

func TestService_Clearance(t *testing.T) {
	Convey("Given a service with a core team", t, func() {
		svc := newService(t, vouch.WithCoreTeam(map[string]string{
			"op1": "Sir Haruto",
		}))

		Convey("Then core members resolve to their display name", func() {
			So(svc.Clearance("op1", 0), ShouldEqual, "Sir Haruto")
		})

		Convey("And ordinary members tier by count", func() {
			So(svc.Clearance("m", 0), ShouldEqual, vouch.ClearanceMember)
			So(svc.Clearance("m", 9), ShouldEqual, vouch.ClearanceMember)
			So(svc.Clearance("m", 10), ShouldEqual, vouch.ClearanceTrusted)
			So(svc.Clearance("m", 24), ShouldEqual, vouch.ClearanceTrusted)
			So(svc.Clearance("m", 25), ShouldEqual, vouch.ClearanceElite)
		})
	})
}

func TestService_Summary(t *testing.T) {
	Convey("Given several members with vouches", t, func() {
		svc := newService(t)
		ctx := context.Background()

		give := func(to string, n int) {
			for i := 0; i < n; i++ {
				_, err := svc.Give(ctx, "someone", to)
				So(err, ShouldBeNil)
			}
		}
		give("bob", 3)
		give("carol", 7)
		give("dave", 2)

		Convey("When summarizing the ledger", func() {
			sum, err := svc.Summary(ctx)
			So(err, ShouldBeNil)

			Convey("Then the total and top contributor are reported", func() {
				So(sum.Total, ShouldEqual, 12)
				So(sum.TopUser, ShouldEqual, "carol")
				So(sum.TopCount, ShouldEqual, 7)
			})
		})
	})

	Convey("Given an empty ledger", t, func() {
		svc := newService(t)

		Convey("Then the summary is empty", func() {
			sum, err := svc.Summary(context.Background())
			So(err, ShouldBeNil)
			So(sum.Total, ShouldEqual, 0)
			So(sum.TopUser, ShouldBeBlank)
		})
	})
}
