package mail

import (
	"context"

	"go.uber.org/zap"
)

// Sender is the outbound mail boundary. Callers fire and forget;
// nothing on the message path waits for it.
type Sender interface {
	SendWelcome(ctx context.Context, to, name string) error
}

// LogSender is the default no-provider implementation: it records the
// mail that would have been sent.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender() *LogSender {
	return &LogSender{logger: zap.L().With(zap.String("component", "mail"))}
}

func (s *LogSender) SendWelcome(ctx context.Context, to, name string) error {
	s.logger.Info("welcome mail",
		zap.String("to", to),
		zap.String("name", name),
	)
	return nil
}
