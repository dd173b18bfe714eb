package resilience

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

var (
	permanent = ErrorClassification{RecordFailure: true}
	transient = ErrorClassification{Retryable: true, RecordFailure: true}
)

// Classify settles the outcomes every adapter treats alike, then defers to adapter.
// Cancelled calls are neither retried nor held against the breaker.
func Classify(err error, adapter ErrorClassifier) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{}
	case IsCircuitOpen(err):
		return transient
	case adapter == nil:
		return permanent
	default:
		return adapter(err)
	}
}

// Transient marks an error class worth retrying.
func Transient() ErrorClassification { return transient }

// Permanent marks an error class that retrying cannot fix.
func Permanent() ErrorClassification { return permanent }

// Temporary wraps err as domain.ErrTemporary when a later attempt may succeed, so the HTTP
// layer answers 503 instead of 500.
func Temporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || Classify(err, classifier).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
