package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "flickrpicker/pkg/errors"
	"flickrpicker/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, test := range tests {
		if got := backoff.NextDelay(test.attempt); got != test.expected {
			t.Errorf("attempt %d: expected %v, got %v", test.attempt, test.expected, got)
		}
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", d)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	b := &ConstantBackoff{Delay: 50 * time.Millisecond}
	if b.NextDelay(0) != 0 {
		t.Error("expected zero delay before the first attempt")
	}
	if b.NextDelay(7) != 50*time.Millisecond {
		t.Error("expected constant delay")
	}
}

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &errs.Error{Type: errs.ErrorTypeServerError, Code: 503, Message: "unavailable"}
		}
		return nil
	}, fastConfig(5))

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return &errs.Error{Type: errs.ErrorTypeAPI, Code: 100, Message: "Invalid API Key"}
	}, fastConfig(5))

	var apiErr *errs.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 100 {
		t.Fatalf("expected api error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), func() error {
		calls++
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "reset"}
	}, cfg)

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(retried) != 2 {
		t.Errorf("expected 2 retries, got %v", retried)
	}
}

func TestDoSingleAttemptReturnsRawError(t *testing.T) {
	sentinel := &errs.Error{Type: errs.ErrorTypeNetwork, Message: "reset"}
	err := Do(context.Background(), func() error { return sentinel }, fastConfig(0))
	if err != sentinel {
		t.Fatalf("expected the operation error unchanged, got %v", err)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(10)
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}

	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "reset"}
	}, cfg)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", &errs.Error{Type: errs.ErrorTypeRateLimit, Code: 429}
		}
		return "ok", nil
	}, fastConfig(2))

	if err != nil || got != "ok" {
		t.Fatalf("expected ok, got %q %v", got, err)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(nil) {
		t.Error("nil must not be retried")
	}
	if DefaultRetryIf(errors.New("plain")) {
		t.Error("unclassified errors are not retried")
	}
	if DefaultRetryIf(context.Canceled) {
		t.Error("cancellation must not be retried")
	}
	if !DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeServerError}) {
		t.Error("server errors are retried")
	}
}

func TestWait(t *testing.T) {
	start := time.Now()
	if err := Wait(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("wait returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	if err := Wait(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("zero wait on a done context should report it, got %v", err)
	}
}
