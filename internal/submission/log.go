package submission

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes each submission as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink backed by logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

// Deliver never fails.
func (s *LogSink) Deliver(_ context.Context, msg Message) error {
	s.logger.Info("contact submission received",
		zap.String("submission_id", msg.ID),
		zap.String("name", msg.Name),
		zap.String("email", msg.Email),
		zap.Int("message_len", len(msg.Message)),
		zap.String("lang", msg.Lang),
		zap.String("request_id", msg.RequestID),
		zap.Time("received_at", msg.ReceivedAt),
	)
	return nil
}
