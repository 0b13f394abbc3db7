package request

import (
	"errors"
	"testing"
	"time"
)

func TestHostBackoff_Delay(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		wantMin  time.Duration
		wantMax  time.Duration
	}{
		{"first failure", 1, time.Second, 1100 * time.Millisecond},
		{"second failure", 2, 2 * time.Second, 2200 * time.Millisecond},
		{"third failure", 3, 4 * time.Second, 4400 * time.Millisecond},
		{"capped", 12, 30 * time.Second, 33 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
			b := NewHostBackoff(time.Second, 30*time.Second)
			b.now = func() time.Time { return now }

			for range tt.failures {
				b.RecordFailure("10.0.2.2:5187")
			}
			n, until := b.State("10.0.2.2:5187")
			if n != tt.failures {
				t.Errorf("failures = %d, want %d", n, tt.failures)
			}
			if d := until.Sub(now); d < tt.wantMin || d > tt.wantMax {
				t.Errorf("delay = %v, want between %v and %v", d, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestHostBackoff_AllowSkipsUntilExpired(t *testing.T) {
	now := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	b := NewHostBackoff(time.Second, time.Minute)
	b.now = func() time.Time { return now }

	if err := b.Allow("localhost:5187"); err != nil {
		t.Fatalf("unknown host should be allowed: %v", err)
	}

	b.RecordFailure("localhost:5187")
	if err := b.Allow("localhost:5187"); !errors.Is(err, ErrBackingOff) {
		t.Errorf("Allow() = %v, want ErrBackingOff", err)
	}
	if err := b.Allow("192.168.1.4:5187"); err != nil {
		t.Errorf("other hosts are isolated, got %v", err)
	}

	now = now.Add(2 * time.Second)
	if err := b.Allow("localhost:5187"); err != nil {
		t.Errorf("backoff should have expired: %v", err)
	}
}

func TestHostBackoff_GradualRecovery(t *testing.T) {
	b := NewHostBackoff(time.Second, time.Minute)
	for range 3 {
		b.RecordFailure("h")
	}

	b.RecordSuccess("h")
	if n, _ := b.State("h"); n != 2 {
		t.Errorf("after 1 success, failures = %d, want 2", n)
	}

	b.RecordSuccess("h")
	b.RecordSuccess("h")
	if n, until := b.State("h"); n != 0 || !until.IsZero() {
		t.Errorf("after full recovery, state = (%d, %v), want cleared", n, until)
	}
	if err := b.Allow("h"); err != nil {
		t.Errorf("recovered host should be allowed: %v", err)
	}
}
