// Package notify publishes session-lifecycle events for downstream
// watchers (dashboards, supervisor tooling). Publishing is fire-and-
// forget: failures are logged and never surfaced to the serving path.
package notify

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Lifecycle event subjects.
const (
	SubjectCallStarted       = "warmtransfer.call.started"
	SubjectCallEnded         = "warmtransfer.call.ended"
	SubjectTransferInitiated = "warmtransfer.transfer.initiated"
	SubjectTransferCompleted = "warmtransfer.transfer.completed"
)

// Publisher emits lifecycle events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(subject string, payload any)
}

// Nop discards all events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(string, any) {}

// NATS publishes events to a NATS broker.
type NATS struct {
	nc *nats.Conn
}

func NewNATS(url string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATS{nc: nc}, nil
}

func (n *NATS) Publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("failed to marshal lifecycle event", "subject", subject, "error", err)
		return
	}
	if err := n.nc.Publish(subject, data); err != nil {
		slog.Warn("failed to publish lifecycle event", "subject", subject, "error", err)
	}
}

func (n *NATS) Close() {
	n.nc.Close()
}
