package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/intellidocs/internal/infrastructure/resilience"
)

// classifyNATSError retries while the connection is down or reconnecting.
func classifyNATSError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) resilience.ErrorClassification {
		for _, transient := range []error{
			nats.ErrNoServers,
			nats.ErrTimeout,
			nats.ErrConnectionClosed,
			nats.ErrDisconnected,
			nats.ErrReconnectBufExceeded,
		} {
			if errors.Is(err, transient) {
				return resilience.Transient()
			}
		}
		return resilience.Permanent()
	})
}
