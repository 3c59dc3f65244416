package generation

import (
	"context"
	"errors"
	"testing"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "story", 3, IsTransient, func(context.Context) error {
		calls++
		if calls < 3 {
			return MarkTransient(errors.New("flaky"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, "story", 3, IsTransient, func(context.Context) error {
		calls++
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no calls after cancellation, got %d", calls)
	}
}

func TestDoZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "story", 0, IsTransient, func(context.Context) error {
		calls++
		return nil
	})

	if err != nil || calls != 1 {
		t.Fatalf("expected single successful call, got calls=%d err=%v", calls, err)
	}
}

func TestIsTransientUnwrapsThroughWrapping(t *testing.T) {
	base := MarkTransient(errors.New("429"))
	wrapped := errors.Join(base)

	if !IsTransient(wrapped) {
		t.Fatal("expected wrapped transient error to classify as transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Fatal("plain error must not classify as transient")
	}
}
