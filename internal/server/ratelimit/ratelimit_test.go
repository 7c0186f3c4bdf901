package ratelimit

import (
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{},
		Blacklist:     map[string]bool{},
		EndpointConfigs: []EndpointConfig{
			{Path: "/batches", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		},
	}
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 2; i++ {
		allowed, _ := l.Allow("1.2.3.4", "/batches", "POST")
		if !allowed {
			t.Fatalf("request %d within burst should be allowed", i+1)
		}
	}

	allowed, info := l.Allow("1.2.3.4", "/batches", "POST")
	if allowed {
		t.Fatal("request beyond burst should be denied")
	}
	if info.RetryAfter < time.Second {
		t.Errorf("RetryAfter = %v, want at least 1s", info.RetryAfter)
	}
	if info.Limit != 10 {
		t.Errorf("Limit = %d, want 10", info.Limit)
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	l.Allow("1.1.1.1", "/batches", "POST")
	l.Allow("1.1.1.1", "/batches", "POST")
	if allowed, _ := l.Allow("1.1.1.1", "/batches", "POST"); allowed {
		t.Fatal("first client should be exhausted")
	}

	if allowed, _ := l.Allow("2.2.2.2", "/batches", "POST"); !allowed {
		t.Fatal("second client should have its own bucket")
	}
}

func TestLimiter_EndpointTiersAreIndependent(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	l.Allow("1.1.1.1", "/batches", "POST")
	l.Allow("1.1.1.1", "/batches", "POST")
	if allowed, _ := l.Allow("1.1.1.1", "/batches", "POST"); allowed {
		t.Fatal("batch tier should be exhausted")
	}

	// Default tier still has budget for the same client.
	if allowed, _ := l.Allow("1.1.1.1", "/batches/abc", "GET"); !allowed {
		t.Fatal("read endpoint should not share the batch tier budget")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 100; i++ {
		if allowed, _ := l.Allow("1.1.1.1", "/batches", "POST"); !allowed {
			t.Fatal("disabled limiter should allow everything")
		}
	}
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	cfg := testConfig()
	cfg.Whitelist["10.0.0.1"] = true
	cfg.Blacklist["10.0.0.2"] = true
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 20; i++ {
		if allowed, _ := l.Allow("10.0.0.1", "/batches", "POST"); !allowed {
			t.Fatal("whitelisted client should never be limited")
		}
	}

	if allowed, _ := l.Allow("10.0.0.2", "/health", "POST"); allowed {
		t.Fatal("blacklisted client should always be denied")
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/batches", Method: "POST", Limit: 10, Window: time.Hour},
		{Path: "/jobs/", Method: "DELETE", Limit: 50, Window: time.Minute},
	}

	if m := MatchEndpoint("/batches", "POST", configs); m == nil || m.Limit != 10 {
		t.Errorf("exact match failed: %+v", m)
	}
	if m := MatchEndpoint("/jobs/abc123", "DELETE", configs); m == nil || m.Limit != 50 {
		t.Errorf("prefix match failed: %+v", m)
	}
	if m := MatchEndpoint("/batches", "GET", configs); m != nil {
		t.Errorf("method mismatch should not match: %+v", m)
	}
	if m := MatchEndpoint("/health", "GET", configs); m == nil || m.Limit != 0 {
		t.Errorf("health should be unlimited: %+v", m)
	}
}

func TestTokenBucket_Refills(t *testing.T) {
	b := newTokenBucket(1, 100) // 100 tokens/sec for a fast test
	if !b.allow() {
		t.Fatal("first request should pass")
	}
	if b.allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if !b.allow() {
		t.Fatal("bucket should have refilled")
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	l.Allow("1.1.1.1", "/batches", "POST")
	if len(l.buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(l.buckets))
	}

	l.evictIdle(0)
	if len(l.buckets) != 0 {
		t.Errorf("buckets after eviction = %d, want 0", len(l.buckets))
	}
}
