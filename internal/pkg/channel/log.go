package channel

import (
	"context"
	"log/slog"
)

// Log pretends to deliver by writing the message to the application log. It
// is the development fallback when no real provider is configured.
type Log struct {
	kind Kind
}

// NewLog returns a log-only channel for kind.
func NewLog(kind Kind) *Log {
	return &Log{kind: kind}
}

func (l *Log) Kind() Kind { return l.kind }

func (l *Log) Provider() string { return ProviderLog }

func (l *Log) Send(ctx context.Context, recipient string, msg Message) (string, error) {
	slog.InfoContext(ctx, "notification logged instead of sent",
		"kind", l.kind,
		"recipient", recipient,
		"subject", msg.Subject,
		"media_url", msg.MediaURL,
	)
	return "logged (test mode)", nil
}
