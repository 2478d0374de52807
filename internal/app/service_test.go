package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/atomicvault/vaultpulse/internal/app"
	"github.com/atomicvault/vaultpulse/internal/domain/model"
	"github.com/atomicvault/vaultpulse/internal/domain/ticket"
	"github.com/atomicvault/vaultpulse/internal/domain/vouch"
	"github.com/atomicvault/vaultpulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	s := service.New(opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		s := service.New()

		Convey("When started twice", func() {
			So(s.Start(context.Background()), ShouldBeNil)
			So(s.Start(context.Background()), ShouldBeNil)

			Convey("Then stats report a running service", func() {
				stats := s.GetStats()
				So(stats["started"], ShouldBeTrue)
			})

			s.Stop()
			s.Stop()
			So(s.GetStats()["started"], ShouldBeFalse)
		})
	})
}

func TestService_ActivityPipeline(t *testing.T) {
	Convey("Given a running service", t, func() {
		s := startService(t)
		ctx := context.Background()

		Convey("When an activity event is enqueued", func() {
			ok := s.Enqueue(ctx, model.ActivityEvent{
				EventID: "evt-1",
				UserID:  "alice",
				TS:      time.Now(),
			})
			So(ok, ShouldBeTrue)

			Convey("Then the member's total eventually grows", func() {
				deadline := time.Now().Add(2 * time.Second)
				var total int64
				for time.Now().Before(deadline) {
					p, err := s.Progress(ctx, "alice")
					So(err, ShouldBeNil)
					if p.Total > 0 {
						total = p.Total
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(total, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the same event id arrives twice", func() {
			So(s.SeenAndRecord(ctx, "evt-dup"), ShouldBeFalse)
			So(s.SeenAndRecord(ctx, "evt-dup"), ShouldBeTrue)

			Convey("And unrecording allows a retry", func() {
				s.Unrecord(ctx, "evt-dup")
				So(s.SeenAndRecord(ctx, "evt-dup"), ShouldBeFalse)
			})
		})
	})
}

func TestService_ActivityClearsAFK(t *testing.T) {
	Convey("Given a member who is away", t, func() {
		s := startService(t)
		ctx := context.Background()
		s.SetAFK("bob", "lunch")
		_, ok := s.AFKStatus("bob")
		So(ok, ShouldBeTrue)

		Convey("When activity is recorded for them", func() {
			_, err := s.RecordActivity(ctx, "bob")
			So(err, ShouldBeNil)

			Convey("Then the away state is cleared", func() {
				_, ok := s.AFKStatus("bob")
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestService_Vouches(t *testing.T) {
	Convey("Given a running service", t, func() {
		s := startService(t)
		ctx := context.Background()

		Convey("When ten members vouch for carol", func() {
			var count int64
			var clearance string
			for i := 0; i < 10; i++ {
				var err error
				count, clearance, err = s.GiveVouch(ctx, string(rune('a'+i))+"-user", "carol")
				So(err, ShouldBeNil)
			}

			Convey("Then she reaches the trusted tier", func() {
				So(count, ShouldEqual, 10)
				So(clearance, ShouldEqual, vouch.ClearanceTrusted)
			})
		})

		Convey("When a member vouches for themselves", func() {
			_, _, err := s.GiveVouch(ctx, "dave", "dave")
			So(errors.Is(err, vouch.ErrSelfVouch), ShouldBeTrue)
		})
	})
}

func TestService_Profile(t *testing.T) {
	Convey("Given a member with vouches and an away state", t, func() {
		s := startService(t)
		ctx := context.Background()
		_, _, err := s.GiveVouch(ctx, "erin", "frank")
		So(err, ShouldBeNil)
		s.SetAFK("frank", "raid")

		Convey("When their profile is read", func() {
			p, err := s.Profile(ctx, "frank")
			So(err, ShouldBeNil)

			Convey("Then it aggregates every ledger", func() {
				So(p.Vouches, ShouldEqual, 1)
				So(p.Clearance, ShouldEqual, vouch.ClearanceMember)
				So(p.TicketsCompleted, ShouldEqual, 0)
				So(p.AFK, ShouldNotBeNil)
				So(p.AFK.Reason, ShouldEqual, "raid")
			})
		})
	})
}

func TestService_Tickets(t *testing.T) {
	Convey("Given a service with a core team", t, func() {
		s := startService(t, service.WithCoreTeam(map[string]string{"op1": "Sir Haruto"}))
		ctx := context.Background()

		So(s.IsOperator("op1"), ShouldBeTrue)
		So(s.IsOperator("rando"), ShouldBeFalse)

		Convey("When a ticket runs its full course", func() {
			codes, err := s.CreateTicket(ctx, "cust-1", "op1", "gear repair")
			So(err, ShouldBeNil)

			So(s.StartTicket(ctx, "cust-1", codes.Start), ShouldBeNil)

			receipt, err := s.CompleteTicket(ctx, "cust-1", codes.End, "op1")
			So(err, ShouldBeNil)
			So(receipt.CompletedTotal, ShouldEqual, 1)

			Convey("Then the ticket is gone and the dashboard sees none", func() {
				_, found, err := s.ViewTicket(ctx, "cust-1")
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)

				active, err := s.ActiveTickets(ctx)
				So(err, ShouldBeNil)
				So(active, ShouldEqual, 0)
			})
		})

		Convey("When a second ticket is opened for the same customer", func() {
			_, err := s.CreateTicket(ctx, "cust-2", "op1", "first")
			So(err, ShouldBeNil)
			_, err = s.CreateTicket(ctx, "cust-2", "op1", "second")
			So(errors.Is(err, ticket.ErrTicketExists), ShouldBeTrue)
		})
	})
}

func TestService_Dashboard(t *testing.T) {
	Convey("Given a running service", t, func() {
		s := startService(t)
		ctx := context.Background()

		Convey("When the dashboard is placed and snapshotted", func() {
			So(s.PlaceDashboard(ctx, "chan-9", "op1"), ShouldBeNil)
			snap, err := s.DashboardSnapshot(ctx)
			So(err, ShouldBeNil)

			Convey("Then it reflects the placement", func() {
				So(snap.ChannelID, ShouldEqual, "chan-9")
				So(snap.RecentAction, ShouldStartWith, "Pulse placed by")
			})
		})
	})
}
