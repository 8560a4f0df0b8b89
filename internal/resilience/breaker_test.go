package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = NewTransientError(errors.New("upstream down"), 503)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	for i := 0; i < 2; i++ {
		_ = b.Execute(context.Background(), func(_ context.Context) error { return errUpstream })
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	err := b.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called while open")
		return nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_NonTrippingErrorsIgnored(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	_ = b.Execute(context.Background(), func(_ context.Context) error { return errors.New("404") })
	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(context.Background(), func(_ context.Context) error { return errUpstream })
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	now = now.Add(2 * time.Second)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	if err := b.Execute(context.Background(), func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after probe, got %s", b.State())
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(3, time.Second)
	b.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), func(_ context.Context) error { return errUpstream })
	}
	now = now.Add(2 * time.Second)
	_ = b.Execute(context.Background(), func(_ context.Context) error { return errUpstream })
	if b.State() != BreakerOpen {
		t.Errorf("expected open after failed probe, got %s", b.State())
	}
}
