package di

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/notify"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.DSN = testsupport.MemoryDSN(t)
	return cfg
}

func newTestContainer(t *testing.T, cfg config.Config, opts ...Option) *Container {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	c, err := NewContainer(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults(context.Background())
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if container.CacheStore() == nil {
		t.Error("Container should have a non-nil cache store")
	}
	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}
	if container.DB() == nil {
		t.Error("Container should have a database")
	}
	if container.Transport() != nil {
		t.Error("Default container should not have a transport")
	}
	if container.Config().Cache.Backend != config.BackendMemory {
		t.Errorf("Expected memory backend, got %q", container.Config().Cache.Backend)
	}
	if _, err := container.NewDispatcher(nil); !errors.Is(err, ErrNotificationsDisabled) {
		t.Errorf("Expected ErrNotificationsDisabled, got %v", err)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "memcached"

	container, err := NewContainer(context.Background(), cfg)
	if err == nil {
		container.Close()
		t.Fatal("NewContainer() should fail with invalid config")
	}
	if !config.IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestNewContainer_BadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "verbose"

	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Error("NewContainer() should reject an unknown log level")
	}
}

func TestNewContainer_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{name: "memory", mutate: func(cfg *config.Config) {}},
		{name: "redis", mutate: func(cfg *config.Config) {
			cfg.Cache.Backend = config.BackendRedis
			cfg.Cache.RedisAddr = mr.Addr()
		}},
		{name: "sql", mutate: func(cfg *config.Config) {
			cfg.Cache.Backend = config.BackendSQL
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t)
			tt.mutate(&cfg)
			container := newTestContainer(t, cfg)

			cs := container.CacheStore()
			rec := &cache.CachedQueryResult{Key: "k_" + tt.name + ":0:0", Result: []byte{0x90}}
			if err := cs.Put(ctx, rec); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}
			got, err := cs.Get(ctx, rec.Key)
			if err != nil || got == nil {
				t.Fatalf("Get() = %v, %v", got, err)
			}
			if string(got.Result) != string(rec.Result) {
				t.Errorf("Result = %v, want %v", got.Result, rec.Result)
			}
			if err := cs.DeleteMulti(ctx, []string{rec.Key}); err != nil {
				t.Fatalf("DeleteMulti() failed: %v", err)
			}
		})
	}
}

func TestNewContainer_ExternalRedisPoolIsNotClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	pool := &redis.Pool{Dial: func() (redis.Conn, error) { return redis.Dial("tcp", mr.Addr()) }}
	defer pool.Close()

	cfg := testConfig(t)
	cfg.Cache.Backend = config.BackendRedis
	cfg.Cache.RedisAddr = "unused:0"

	container, err := NewContainer(context.Background(), cfg, WithLogger(zap.NewNop()), WithRedisPool(pool))
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		t.Errorf("pool should still be usable: %v", err)
	}
}

func TestNewContainer_GCM(t *testing.T) {
	cfg := testConfig(t)
	cfg.GCM.Enabled = true
	cfg.GCM.APIKey = "secret"

	container := newTestContainer(t, cfg)
	if _, ok := container.Transport().(*notify.GCMTransport); !ok {
		t.Fatalf("Expected GCM transport, got %T", container.Transport())
	}
	if _, err := container.NewDispatcher(staticResolver{}); err != nil {
		t.Errorf("NewDispatcher() failed: %v", err)
	}
}

func TestNewContainer_WithTransport(t *testing.T) {
	tr := &recordingTransport{}
	container := newTestContainer(t, testConfig(t), WithTransport(tr))

	if container.Transport() != tr {
		t.Error("Expected injected transport")
	}
}

func TestContainer_QueryOptions(t *testing.T) {
	container := newTestContainer(t, testConfig(t))

	if n := len(container.QueryOptions()); n != 3 {
		t.Errorf("Expected 3 query options, got %d", n)
	}
}

func TestContainer_CloseTwice(t *testing.T) {
	container, err := NewContainer(context.Background(), testConfig(t), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := container.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}
