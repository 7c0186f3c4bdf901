package ratelimit

import (
	"context"
	"testing"
	"time"
)

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		RequestsPerMinute: 60,
		RequestsPerHour:   100,
		BurstLimit:        2,
		Cooldown:          0,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Minute,
	}
}

func TestLimiter_BurstThenWait(t *testing.T) {
	l := newLimiter(testServiceConfig())
	now := time.Now()

	for i := 0; i < 2; i++ {
		if _, admitted := l.tryAcquire(now); !admitted {
			t.Fatalf("acquisition %d within burst should be admitted", i+1)
		}
	}

	wait, admitted := l.tryAcquire(now)
	if admitted {
		t.Fatal("acquisition beyond burst should be denied")
	}
	// 60 rpm refills one token per second.
	if wait <= 0 || wait > time.Second {
		t.Errorf("wait = %v, want (0, 1s]", wait)
	}
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := newLimiter(testServiceConfig())
	now := time.Now()

	l.tryAcquire(now)
	l.tryAcquire(now)
	if _, admitted := l.tryAcquire(now); admitted {
		t.Fatal("bucket should be empty")
	}

	if _, admitted := l.tryAcquire(now.Add(1100 * time.Millisecond)); !admitted {
		t.Fatal("one token should have refilled after a second")
	}
}

func TestLimiter_HourlyWindow(t *testing.T) {
	cfg := testServiceConfig()
	cfg.RequestsPerHour = 3
	cfg.BurstLimit = 10
	l := newLimiter(cfg)
	now := time.Now()

	// Fill the hourly window with admissions spread over the last half hour.
	l.window = []time.Time{
		now.Add(-30 * time.Minute),
		now.Add(-20 * time.Minute),
		now.Add(-10 * time.Minute),
	}

	wait, admitted := l.tryAcquire(now)
	if admitted {
		t.Fatal("acquisition at the hourly cap should be denied")
	}
	// The oldest admission ages out of the window in 30 minutes.
	if wait < 29*time.Minute || wait > 30*time.Minute {
		t.Errorf("wait = %v, want about 30m", wait)
	}

	// After the oldest admission ages out, one slot frees up.
	if _, admitted := l.tryAcquire(now.Add(31 * time.Minute)); !admitted {
		t.Fatal("acquisition should be admitted once the window slides")
	}
}

func TestLimiter_BackoffGrowth(t *testing.T) {
	cfg := testServiceConfig()
	cfg.Cooldown = 500 * time.Millisecond
	l := newLimiter(cfg)

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, time.Minute}, // capped at MaxBackoff
	}
	for _, tt := range tests {
		l.failures = tt.failures
		if got := l.backoff(); got != tt.want {
			t.Errorf("backoff with %d failures = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestLimiter_BackoffBlocksAcquisition(t *testing.T) {
	cfg := testServiceConfig()
	cfg.Cooldown = 500 * time.Millisecond
	l := newLimiter(cfg)

	l.recordFailure()
	l.recordFailure()

	wait, admitted := l.tryAcquire(time.Now())
	if admitted {
		t.Fatal("acquisition during backoff should be denied")
	}
	if wait <= 0 || wait > 2*time.Second {
		t.Errorf("wait = %v, want (0, 2s]", wait)
	}

	// Tokens are untouched: once the backoff expires the call is admitted.
	if _, admitted := l.tryAcquire(time.Now().Add(3 * time.Second)); !admitted {
		t.Fatal("acquisition after backoff should be admitted")
	}
}

func TestLimiter_SuccessResetsBackoff(t *testing.T) {
	l := newLimiter(testServiceConfig())

	l.recordFailure()
	l.recordFailure()
	l.recordSuccess()

	if l.failures != 0 {
		t.Errorf("failures after success = %d, want 0", l.failures)
	}
	if _, admitted := l.tryAcquire(time.Now()); !admitted {
		t.Fatal("acquisition after reset should be admitted")
	}
}

func TestLimiter_AcquireRespectsContext(t *testing.T) {
	cfg := testServiceConfig()
	cfg.RequestsPerMinute = 1
	cfg.BurstLimit = 1
	l := newLimiter(cfg)

	if err := l.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.acquire(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("acquire = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("acquire did not return promptly after cancellation")
	}
}

func TestRegistry_LazyDefaultForUnknownService(t *testing.T) {
	r := NewRegistry()

	if err := r.Acquire(context.Background(), "unknown_service"); err != nil {
		t.Fatalf("Acquire for unknown service failed: %v", err)
	}

	st := r.Status("unknown_service")
	defaults := DefaultServiceConfig()
	if st.BurstLimit != defaults.BurstLimit {
		t.Errorf("BurstLimit = %d, want default %d", st.BurstLimit, defaults.BurstLimit)
	}
	if st.RequestsLastHour != 1 {
		t.Errorf("RequestsLastHour = %d, want 1", st.RequestsLastHour)
	}
}

func TestRegistry_ConfigureReplacesLimiter(t *testing.T) {
	r := NewRegistry()
	r.Status(ServiceGemini) // force limiter creation

	r.Configure(ServiceGemini, ServiceConfig{
		RequestsPerMinute: 1,
		RequestsPerHour:   10,
		BurstLimit:        7,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Minute,
	})

	st := r.Status(ServiceGemini)
	if st.BurstLimit != 7 {
		t.Errorf("BurstLimit after Configure = %d, want 7", st.BurstLimit)
	}
	if st.RequestsLastHour != 0 {
		t.Errorf("Configure should reset limiter state, got %d requests", st.RequestsLastHour)
	}
}

func TestRegistry_RecordOnUnseenServiceIsNoop(t *testing.T) {
	r := NewRegistry()

	// Must not create limiters or panic.
	r.RecordFailure("never_acquired")
	r.RecordSuccess("never_acquired")

	if n := len(r.AllStatus()); n != 0 {
		t.Errorf("AllStatus has %d entries, want 0", n)
	}
}

func TestRegistry_AllStatus(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	if err := r.Acquire(ctx, ServiceGemini); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := r.Acquire(ctx, ServiceHunter); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	r.RecordFailure(ServiceHunter)

	statuses := r.AllStatus()
	if len(statuses) != 2 {
		t.Fatalf("AllStatus has %d entries, want 2", len(statuses))
	}
	if statuses[ServiceHunter].ConsecutiveFailures != 1 {
		t.Errorf("hunter failures = %d, want 1", statuses[ServiceHunter].ConsecutiveFailures)
	}
	if statuses[ServiceGemini].InBackoff {
		t.Error("gemini should not be in backoff")
	}
}
