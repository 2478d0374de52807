package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
	"github.com/atomicvault/vaultpulse/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// storeOpSamples reads the latency histogram's sample count for one op.
func storeOpSamples(t *testing.T, op string) uint64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "vault_pulse_store_op_duration_milliseconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "op" && l.GetValue() == op {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestMemoryStore_GetUpsert(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		store, err := repository.NewMemoryStore()
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Then a missing record is absent, not an error", func() {
			rec, ok, err := store.Get(ctx, "levels", "u1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(rec, ShouldBeNil)
		})

		Convey("When upserting a record", func() {
			err := store.Upsert(ctx, "levels", "u1", repository.Record{"xp": "42"})
			So(err, ShouldBeNil)

			Convey("Then it can be read back", func() {
				rec, ok, err := store.Get(ctx, "levels", "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(rec.Int64("xp"), ShouldEqual, 42)
			})

			Convey("And a second upsert merges fields instead of replacing", func() {
				err := store.Upsert(ctx, "levels", "u1", repository.Record{"title": "Adventurer"})
				So(err, ShouldBeNil)

				rec, ok, err := store.Get(ctx, "levels", "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(rec.Int64("xp"), ShouldEqual, 42)
				So(rec["title"], ShouldEqual, "Adventurer")
			})
		})
	})
}

func TestMemoryStore_Increment(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		store, err := repository.NewMemoryStore()
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When incrementing a missing record", func() {
			v, err := store.Increment(ctx, "vouches", "u1", "count", 1)
			So(err, ShouldBeNil)

			Convey("Then the field starts from zero", func() {
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When incrementing repeatedly", func() {
			for i := 0; i < 5; i++ {
				_, err := store.Increment(ctx, "vouches", "u1", "count", 3)
				So(err, ShouldBeNil)
			}

			Convey("Then the post-increment value accumulates", func() {
				v, err := store.Increment(ctx, "vouches", "u1", "count", 0)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 15)
			})
		})
	})
}

func TestMemoryStore_Delete(t *testing.T) {
	Convey("Given a store with one record", t, func() {
		store, err := repository.NewMemoryStore()
		So(err, ShouldBeNil)
		ctx := context.Background()
		So(store.Upsert(ctx, "active", "c1", repository.Record{"status": "PENDING"}), ShouldBeNil)

		Convey("When deleting it", func() {
			removed, err := store.Delete(ctx, "active", "c1")
			So(err, ShouldBeNil)
			So(removed, ShouldBeTrue)

			Convey("Then it is gone", func() {
				_, ok, err := store.Get(ctx, "active", "c1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And deleting again reports nothing removed", func() {
				removed, err := store.Delete(ctx, "active", "c1")
				So(err, ShouldBeNil)
				So(removed, ShouldBeFalse)
			})
		})

		Convey("When deleting from an unknown collection", func() {
			removed, err := store.Delete(ctx, "missing", "c1")
			So(err, ShouldBeNil)
			So(removed, ShouldBeFalse)
		})
	})
}

func TestMemoryStore_TopN(t *testing.T) {
	Convey("Given records with distinct totals", t, func() {
		store, err := repository.NewMemoryStore()
		So(err, ShouldBeNil)
		ctx := context.Background()

		totals := map[string]int64{"a": 10, "b": 300, "c": 20, "d": 5}
		for _, key := range []string{"a", "b", "c", "d"} {
			_, err := store.Increment(ctx, "levels", key, "xp", totals[key])
			So(err, ShouldBeNil)
		}

		Convey("When asking for the top 2", func() {
			entries, err := store.TopN(ctx, "levels", "xp", 2)
			So(err, ShouldBeNil)

			Convey("Then results come back ordered descending", func() {
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Key, ShouldEqual, "b")
				So(entries[0].Value, ShouldEqual, 300)
				So(entries[1].Key, ShouldEqual, "c")
			})
		})

		Convey("When asking for more than exist", func() {
			entries, err := store.TopN(ctx, "levels", "xp", 50)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 4)
		})

		Convey("When ties exist they keep insertion order", func() {
			_, err := store.Increment(ctx, "levels", "e", "xp", 20)
			So(err, ShouldBeNil)
			entries, err := store.TopN(ctx, "levels", "xp", 5)
			So(err, ShouldBeNil)
			// c was inserted before e; both hold 20.
			So(entries[1].Key, ShouldEqual, "c")
			So(entries[2].Key, ShouldEqual, "e")
		})

		Convey("When the limit is invalid", func() {
			_, err := store.TopN(ctx, "levels", "xp", 0)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
		})
	})
}

func TestMemoryStore_OpLatency(t *testing.T) {
	Convey("Given a memory store", t, func() {
		store, err := repository.NewMemoryStore()
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When counting and deleting", func() {
			counts := storeOpSamples(t, "count")
			deletes := storeOpSamples(t, "delete")

			_, err := store.Count(ctx, "levels")
			So(err, ShouldBeNil)
			_, err = store.Delete(ctx, "levels", "u1")
			So(err, ShouldBeNil)

			Convey("Then both ops land in the latency histogram", func() {
				So(storeOpSamples(t, "count"), ShouldBeGreaterThan, counts)
				So(storeOpSamples(t, "delete"), ShouldBeGreaterThan, deletes)
			})
		})
	})
}

func TestMemoryStore_Snapshot(t *testing.T) {
	Convey("Given a store with a snapshot path", t, func() {
		path := filepath.Join(t.TempDir(), "vault.json")
		store, err := repository.NewMemoryStore(repository.WithSnapshotPath(path))
		So(err, ShouldBeNil)
		ctx := context.Background()

		_, err = store.Increment(ctx, "levels", "u1", "xp", 120)
		So(err, ShouldBeNil)
		So(store.Upsert(ctx, "active", "c1", repository.Record{"status": "PENDING", "name": "Repair"}), ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		Convey("When reopening from the same path", func() {
			reopened, err := repository.NewMemoryStore(repository.WithSnapshotPath(path))
			So(err, ShouldBeNil)

			Convey("Then records survive the restart", func() {
				rec, ok, err := reopened.Get(ctx, "levels", "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(rec.Int64("xp"), ShouldEqual, 120)

				rec, ok, err = reopened.Get(ctx, "active", "c1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(rec["name"], ShouldEqual, "Repair")
			})
		})
	})
}

func TestMemoryStore_CountAndAll(t *testing.T) {
	Convey("Given a store with a few records", t, func() {
		store, err := repository.NewMemoryStore()
		So(err, ShouldBeNil)
		ctx := context.Background()

		for _, key := range []string{"c1", "c2", "c3"} {
			So(store.Upsert(ctx, "active", key, repository.Record{"status": "PENDING"}), ShouldBeNil)
		}

		Convey("Then Count reports the collection size", func() {
			n, err := store.Count(ctx, "active")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
		})

		Convey("And All returns them in insertion order", func() {
			all, err := store.All(ctx, "active")
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 3)
			So(all[0].Key, ShouldEqual, "c1")
			So(all[2].Key, ShouldEqual, "c3")
		})

		Convey("And an unknown collection is empty, not an error", func() {
			all, err := store.All(ctx, "missing")
			So(err, ShouldBeNil)
			So(all, ShouldBeEmpty)
			n, err := store.Count(ctx, "missing")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}
