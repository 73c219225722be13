package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/resilience"
)

// nats.ErrTimeout is deliberately absent: the job may still be running.
var classifyNATSError = resilience.TransientClassifier(func(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionReconnecting)
})

func wrapTemporaryIfNeeded(err error) error {
	if errors.Is(err, nats.ErrTimeout) {
		return domain.WrapError(domain.ErrTemporary, "nats request", err)
	}
	return resilience.WrapTemporary("nats request", err, classifyNATSError)
}
