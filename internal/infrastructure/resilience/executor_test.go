package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

var errFlaky = errors.New("flaky")

func retryOnFlaky(err error) ErrorClassification {
	if errors.Is(err, errFlaky) {
		return Transient()
	}
	return Permanent()
}

func fastRetry(attempts int) Retry {
	return Retry{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(Config{Retry: fastRetry(3)})

	attempts := 0
	err := exec.Execute(context.Background(), "ollama.analyze", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	}, retryOnFlaky)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{Retry: fastRetry(3)})

	attempts := 0
	errBadModel := errors.New("model not found")
	err := exec.Execute(context.Background(), "ollama.analyze", func(context.Context) error {
		attempts++
		return errBadModel
	}, retryOnFlaky)
	if !errors.Is(err, errBadModel) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteHonoursOperationOverride(t *testing.T) {
	exec := NewExecutor(Config{
		Retry:      fastRetry(3),
		Operations: map[string]Retry{"ollama.answer": NoRetry()},
	})

	attempts := 0
	err := exec.Execute(context.Background(), "ollama.answer", func(context.Context) error {
		attempts++
		return errFlaky
	}, retryOnFlaky)
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected flaky error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("chat answers must not be retried, got %d attempts", attempts)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(Config{Retry: Retry{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second}})
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := exec.Execute(ctx, "nats.ingest", func(context.Context) error {
		attempts++
		cancel()
		return errFlaky
	}, retryOnFlaky)
	if !errors.Is(err, errFlaky) || attempts != 1 {
		t.Fatalf("expected one attempt and the call error, got %d / %v", attempts, err)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		Retry: NoRetry(),
		Breaker: Breaker{
			Enabled:          true,
			MinRequests:      2,
			FailureRatio:     0.5,
			OpenTimeout:      50 * time.Millisecond,
			HalfOpenMaxCalls: 1,
		},
	})

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "ollama.embed", func(context.Context) error {
			return errFlaky
		}, retryOnFlaky)
		if !errors.Is(err, errFlaky) {
			t.Fatalf("expected flaky error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "ollama.embed", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, retryOnFlaky)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestExecutorReportsBreakerTransitions(t *testing.T) {
	var transitions []string
	exec := NewExecutor(Config{
		Retry:   NoRetry(),
		Breaker: Breaker{Enabled: true, MinRequests: 1, FailureRatio: 1, OpenTimeout: time.Minute, HalfOpenMaxCalls: 1},
	}, WithStateObserver(func(operation string, state gobreaker.State) {
		transitions = append(transitions, operation+":"+state.String())
	}))

	_ = exec.Execute(context.Background(), "ollama.embed", func(context.Context) error {
		return errors.New("ollama down")
	}, nil)

	if len(transitions) != 1 || transitions[0] != "ollama.embed:open" {
		t.Fatalf("unexpected transitions %v", transitions)
	}
	if got := exec.States()["ollama.embed"]; got != "open" {
		t.Fatalf("expected open breaker, got %q", got)
	}
}

func TestNilExecutorRunsDirectly(t *testing.T) {
	var exec *Executor
	called := false
	if err := exec.Execute(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	}, nil); err != nil || !called {
		t.Fatalf("nil executor must run the call, got %v", err)
	}
}

func TestTemporary(t *testing.T) {
	if err := Temporary("ollama analyze", errFlaky, retryOnFlaky); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("transient failure must become temporary, got %v", err)
	}
	if err := Temporary("ollama analyze", gobreaker.ErrOpenState, nil); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("open circuit must become temporary, got %v", err)
	}
	permanentErr := errors.New("bad request")
	if err := Temporary("ollama analyze", permanentErr, retryOnFlaky); errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("permanent failure must stay as is, got %v", err)
	}
	if err := Temporary("ollama analyze", context.Canceled, retryOnFlaky); errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("cancellation is not temporary, got %v", err)
	}
	if Temporary("op", nil, nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestRetryBackoffIsCapped(t *testing.T) {
	r := Retry{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}
	got := []time.Duration{r.backoff(1), r.backoff(2), r.backoff(3)}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got[i], want[i])
		}
	}
}
