package mail

import (
	"context"
	"log/slog"
)

// LogSender is a sender that only logs messages. Used in development where no
// delivery API is configured, so codes show up in the server log.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only mail sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name returns the name of this sender.
func (s *LogSender) Name() string {
	return "mail-log"
}

// Send logs the message instead of delivering it.
func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "mail (log only)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("html", msg.HTML),
	)
	return nil
}
