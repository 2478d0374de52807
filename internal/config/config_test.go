package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atomicvault/vaultpulse/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "VAULT_") {
			key, _, _ := strings.Cut(e, "=")
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		clearEnv(t)

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then defaults apply", func() {
			So(cfg.Addr, ShouldEqual, ":8080")
			So(cfg.StoreBackend, ShouldEqual, config.BackendMemory)
			So(cfg.QueueSize, ShouldEqual, 10_000)
			So(cfg.WorkerCount, ShouldEqual, 4)
			So(cfg.PointsPerLevel, ShouldEqual, 100)
			So(cfg.MaxLeaderboardLimit, ShouldEqual, 100)
			So(cfg.RefreshIntervalSeconds, ShouldEqual, 60)
		})
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		clearEnv(t)
		t.Setenv("VAULT_ADDR", ":9999")
		t.Setenv("VAULT_STORE_BACKEND", "redis")
		t.Setenv("VAULT_REDIS_ADDR", "redis:6379")
		t.Setenv("VAULT_WORKER_COUNT", "8")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then env values win over defaults", func() {
			So(cfg.Addr, ShouldEqual, ":9999")
			So(cfg.StoreBackend, ShouldEqual, config.BackendRedis)
			So(cfg.RedisAddr, ShouldEqual, "redis:6379")
			So(cfg.WorkerCount, ShouldEqual, 8)
		})
	})
}

func TestLoad_File(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "vault.yaml")
		yaml := "addr: \":7070\"\nsnapshot_path: /tmp/vault.json\ncore_team:\n  op1: Sir Haruto\n"
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
		t.Setenv("VAULT_CONFIG", path)

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then file values apply", func() {
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.SnapshotPath, ShouldEqual, "/tmp/vault.json")
			So(cfg.CoreTeam["op1"], ShouldEqual, "Sir Haruto")
		})
	})
}

func TestLoad_Validation(t *testing.T) {
	Convey("Given invalid settings", t, func() {
		clearEnv(t)

		Convey("When the store backend is unknown", func() {
			t.Setenv("VAULT_STORE_BACKEND", "cassette-tape")
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When points per level is not positive", func() {
			t.Setenv("VAULT_POINTS_PER_LEVEL", "0")
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
