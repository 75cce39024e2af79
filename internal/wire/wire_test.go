package wire

import (
	"context"
	"testing"
	"time"

	"book-engine/internal/config"
	"book-engine/internal/infrastructure/lock"
	"book-engine/internal/infrastructure/llm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Name = "book-engine"
	cfg.Storage.DataDir = t.TempDir()
	cfg.Generation.Timeout = 30 * time.Second
	cfg.Locking.Backend = config.LockBackendLocal
	cfg.LLM.DefaultProvider = llm.ProviderMock
	return cfg
}

func TestProvideGenerationOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.PreviousTailRunes = 300

	opts := ProvideGenerationOptions(cfg)
	if opts.Timeout != 30*time.Second || opts.PreviousTailRunes != 300 {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.NextPreviewRunes != 200 {
		t.Fatalf("next preview default = %d, want 200", opts.NextPreviewRunes)
	}
}

func TestProvideGenerationLocker(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	data, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	locker, err := ProvideGenerationLocker(ctx, cfg, data)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := locker.(*lock.LocalLocker); !ok {
		t.Fatalf("locker = %T, want *lock.LocalLocker", locker)
	}

	cfg.Locking.Backend = config.LockBackendRedis
	if _, err := ProvideGenerationLocker(ctx, cfg, data); err == nil {
		t.Fatal("redis backend without client should fail")
	}

	cfg.Locking.Backend = "etcd"
	if _, err := ProvideGenerationLocker(ctx, cfg, data); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestInitializeAppWithoutRedis(t *testing.T) {
	r, cleanup, err := InitializeApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if r.Engine() == nil {
		t.Fatal("engine is nil")
	}
}
