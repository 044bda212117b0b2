package utils

import (
	"context"
	"testing"
	"time"
)

func TestRedisConfigDefaults(t *testing.T) {
	got := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if got.DialTimeout != 3*time.Second {
		t.Fatalf("DialTimeout = %v, want 3s", got.DialTimeout)
	}
	if got.ReadTimeout != 2*time.Second || got.WriteTimeout != 2*time.Second {
		t.Fatalf("rw timeouts = %v/%v, want 2s/2s", got.ReadTimeout, got.WriteTimeout)
	}
	if got.PoolSize != 20 {
		t.Fatalf("PoolSize = %d, want 20", got.PoolSize)
	}
	if got.PoolTimeout != 4*time.Second {
		t.Fatalf("PoolTimeout = %v, want 4s", got.PoolTimeout)
	}
	if got.ConnMaxIdleTime != 5*time.Minute || got.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("conn ages = %v/%v", got.ConnMaxIdleTime, got.ConnMaxLifetime)
	}
	if got.PingTimeout != 2*time.Second {
		t.Fatalf("PingTimeout = %v, want 2s", got.PingTimeout)
	}
}

func TestRedisConfigKeepsExplicitValues(t *testing.T) {
	in := RedisConfig{
		Addr:            "localhost:6379",
		DialTimeout:     time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		PoolSize:        5,
		MinIdleConns:    1,
		PoolTimeout:     time.Second,
		ConnMaxIdleTime: time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     time.Second,
	}
	if got := in.withDefaults(); got != in {
		t.Fatalf("withDefaults changed explicit values: %+v", got)
	}
}

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatal("expected error for empty addr")
	}
}
