package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/infrastructure/resilience"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "no servers", err: fmt.Errorf("nats publish: %w", nats.ErrNoServers), retryable: true, record: true},
		{name: "reconnect buffer", err: nats.ErrReconnectBufExceeded, retryable: true, record: true},
		{name: "canceled", err: context.Canceled, retryable: false, record: false},
		{name: "bad subject", err: nats.ErrBadSubject, retryable: false, record: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyNATSError(tt.err)
			if got.Retryable != tt.retryable || got.RecordFailure != tt.record {
				t.Fatalf("classifyNATSError(%v) = %+v", tt.err, got)
			}
		})
	}
}

func TestPublishFailuresBecomeTemporary(t *testing.T) {
	if err := resilience.Temporary("nats publish", nats.ErrConnectionClosed, classifyNATSError); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
	if err := resilience.Temporary("nats publish", nats.ErrBadSubject, classifyNATSError); errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("bad subject must stay permanent, got %v", err)
	}
}
