package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRun_ExhaustsAttemptsWithExponentialBackoff(t *testing.T) {
	var sleeps []time.Duration
	rotations := 0
	attempts := 0

	err := Run(context.Background(), "clip download", func(ctx context.Context) error {
		attempts++
		return errors.New("connection reset by peer")
	}, Options{
		MaxAttempts: 3,
		OnNetworkFailure: func(ctx context.Context) error {
			rotations++
			return nil
		},
		sleep: func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
	})

	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if rotations != 2 {
		t.Fatalf("rotations = %d, want 2", rotations)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleep %d = %v, want %v", i, sleeps[i], want[i])
		}
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %T: %v", err, err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("ExhaustedError.Attempts = %d, want 3", exhausted.Attempts)
	}
}

func TestRun_BackoffIsUncapped(t *testing.T) {
	var sleeps []time.Duration
	_ = Run(context.Background(), "long retry", func(ctx context.Context) error {
		return errors.New("timed out")
	}, Options{
		MaxAttempts: 5,
		sleep: func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
	})

	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	if sleeps[3] != 40*time.Second {
		t.Fatalf("4th delay = %v, want 40s (no cap)", sleeps[3])
	}
}

func TestRun_SucceedsMidway(t *testing.T) {
	attempts := 0
	err := Run(context.Background(), "recovers", func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("timed out")
		}
		return nil
	}, Options{
		MaxAttempts: 3,
		sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestRun_NonNetworkFailureSkipsRotation(t *testing.T) {
	rotations := 0
	_ = Run(context.Background(), "bad input", func(ctx context.Context) error {
		return errors.New("unsupported URL")
	}, Options{
		MaxAttempts: 3,
		OnNetworkFailure: func(ctx context.Context) error {
			rotations++
			return nil
		},
		sleep: func(ctx context.Context, d time.Duration) error { return nil },
	})
	if rotations != 0 {
		t.Fatalf("rotations = %d, want 0 for non-network failures", rotations)
	}
}

func TestRun_RebuildsCommandEachAttempt(t *testing.T) {
	session := "session-a"
	var used []string

	_ = Run(context.Background(), "rotating", func(ctx context.Context) error {
		used = append(used, session)
		return errors.New("tunnel connection failed")
	}, Options{
		MaxAttempts: 3,
		OnNetworkFailure: func(ctx context.Context) error {
			session = fmt.Sprintf("session-%d", len(used))
			return nil
		},
		sleep: func(ctx context.Context, d time.Duration) error { return nil },
	})

	if len(used) != 3 {
		t.Fatalf("attempts = %d, want 3", len(used))
	}
	if used[0] == used[1] || used[1] == used[2] {
		t.Fatalf("rotation not observed across attempts: %v", used)
	}
}

func TestIsNetworkError_Classification(t *testing.T) {
	network := []error{
		errors.New("read: connection reset by peer"),
		errors.New("yt-dlp failed: HTTP Error 429: Too Many Requests"),
		errors.New("TLS handshake failure"),
		errors.New("Tunnel connection failed: 502 Bad Gateway"),
		errors.New("operation timed out"),
		context.DeadlineExceeded,
	}
	for _, err := range network {
		if !IsNetworkError(err) {
			t.Fatalf("expected network classification for %v", err)
		}
	}

	other := []error{
		nil,
		errors.New("video unavailable"),
		errors.New("sign in to confirm you're not a bot"),
	}
	for _, err := range other {
		if IsNetworkError(err) {
			t.Fatalf("expected non-network classification for %v", err)
		}
	}
}
