package service

import (
	"context"

	"supplylink/internal/queue"

	"go.uber.org/zap"
)

// LogMailer stands in for an SMTP relay: send-email jobs are written to the log.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger.Named("mailer")}
}

// Send handles a send-email job.
func (m *LogMailer) Send(_ context.Context, job queue.Job) error {
	m.logger.Info("email",
		zap.String("to", job.Email),
		zap.String("subject", job.Subject),
		zap.Int("body_bytes", len(job.Body)),
	)
	return nil
}
