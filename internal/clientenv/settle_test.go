package clientenv

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitSettled_Value(t *testing.T) {
	done := make(chan string, 1)
	done <- "fp-1"
	var released atomic.Int32
	got, err := waitSettled(context.Background(), done, func() { released.Add(1) })
	if err != nil || got != "fp-1" {
		t.Fatalf("waitSettled = %q, %v", got, err)
	}
	if released.Load() != 1 {
		t.Errorf("released = %d, want 1", released.Load())
	}
}

func TestWaitSettled_TimeoutReleasesAfterLateValue(t *testing.T) {
	done := make(chan string, 1)
	var released atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := waitSettled(ctx, done, func() { released.Add(1) })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if released.Load() != 0 {
		t.Fatal("callbacks must stay alive until the promise settles")
	}

	done <- "late"
	deadline := time.Now().Add(time.Second)
	for released.Load() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if released.Load() != 1 {
		t.Errorf("released = %d after late settle, want 1", released.Load())
	}
}
