package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	f.calls++
	return f.err
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := n.SendWelcome(ctx, WelcomeInput{}); err == nil {
			t.Fatalf("call %d: expected provider error", i)
		}
	}

	if n.State() != "open" {
		t.Fatalf("state = %s, want open", n.State())
	}

	if err := n.SendWelcome(ctx, WelcomeInput{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner called %d times, want 2", inner.calls)
	}
}

func TestProtectedNotifier_HalfOpenRecovers(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	_ = n.SendWelcome(ctx, WelcomeInput{})
	if n.State() != "open" {
		t.Fatalf("state = %s, want open", n.State())
	}

	now = now.Add(2 * time.Minute)
	inner.err = nil

	if err := n.SendWelcome(ctx, WelcomeInput{}); err != nil {
		t.Fatalf("trial call should pass through, got %v", err)
	}
	if n.State() != "closed" {
		t.Fatalf("state = %s, want closed", n.State())
	}
}

func TestProtectedNotifier_HalfOpenFailureReopens(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	_ = n.SendWelcome(ctx, WelcomeInput{})
	now = now.Add(2 * time.Minute)

	if err := n.SendWelcome(ctx, WelcomeInput{}); err == nil || errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected trial call to reach provider and fail, got %v", err)
	}
	if n.State() != "open" {
		t.Fatalf("state = %s, want open", n.State())
	}
}
