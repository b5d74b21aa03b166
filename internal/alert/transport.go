package alert

import (
	"context"
	"log/slog"
	"net/http"
)

// Receipt is the transport's answer to a send request.
type Receipt struct {
	StatusCode int
	Body       string
}

// Success reports whether the transport accepted the message.
func (r Receipt) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport delivers a message to a recipient. Implementations should honour
// ctx cancellation; the coordinator bounds every call with a timeout.
type Transport interface {
	Send(ctx context.Context, message, recipient string) (Receipt, error)
}

// LogTransport writes alerts to the log instead of delivering them.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a transport for local development.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send implements Transport.
func (t *LogTransport) Send(_ context.Context, message, recipient string) (Receipt, error) {
	t.logger.Info("alert", "recipient", recipient, "message", message)
	return Receipt{StatusCode: http.StatusOK, Body: "logged"}, nil
}
