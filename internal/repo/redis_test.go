package repo

import (
	"testing"
	"time"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/types"
)

func TestNormalizeAddrs(t *testing.T) {
	cfg := config.RedisCfg{Addr: "127.0.0.1:6379, 127.0.0.2:6379"}
	addrs := normalizeAddrs(cfg)
	if len(addrs) != 2 {
		t.Fatalf("expected 2 addrs, got %d", len(addrs))
	}
	if addrs[0] != "127.0.0.1:6379" || addrs[1] != "127.0.0.2:6379" {
		t.Fatalf("unexpected addrs: %#v", addrs)
	}
	if got := normalizeAddrs(config.RedisCfg{}); got != nil {
		t.Fatalf("empty addr should yield nil, got %#v", got)
	}
}

func TestKeyTemplates(t *testing.T) {
	r := &RedisRepo{Prefix: "pixiu"}
	if got := r.KeyLatest(); got != "pixiu:latest" {
		t.Fatalf("KeyLatest = %s", got)
	}
	if got := r.KeyWorker(3); got != "pixiu:worker:{3}" {
		t.Fatalf("KeyWorker = %s", got)
	}
}

func TestLatestFields(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f := latestFields(types.UpdateEvent{Worker: 2, Generation: 17, Mean: 12.5, Len: 4, Variant: "gate", At: at})
	want := map[string]string{
		"worker":     "2",
		"generation": "17",
		"mean":       "12.5",
		"len":        "4",
		"variant":    "gate",
		"at":         "2024-01-02T03:04:05Z",
	}
	for k, v := range want {
		if f[k] != v {
			t.Errorf("field %s = %v, want %s", k, f[k], v)
		}
	}
}

func TestBuildOptionsDefaults(t *testing.T) {
	opts := buildOptions(config.RedisCfg{DB: 2}, []string{"a:1"})
	if opts.PoolSize != 10 || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.ReadTimeout != 800*time.Millisecond {
		t.Fatalf("read timeout = %v", opts.ReadTimeout)
	}
}

func TestNewRedisRequiresAddr(t *testing.T) {
	if _, err := NewRedis(config.RedisCfg{}, nil); err == nil {
		t.Fatalf("expected error without addresses")
	}
}
