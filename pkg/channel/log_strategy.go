package channel

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dispatchkit/pkg/logger"
)

// LogStrategy writes the message to the logger instead of a provider. It is
// registered for channels whose credentials are absent, so local runs go
// through the whole pipeline.
type LogStrategy struct {
	channel Channel
	logger  *slog.Logger
}

func NewLogStrategy(ch Channel, l *slog.Logger) *LogStrategy {
	if l == nil {
		l = slog.Default()
	}
	return &LogStrategy{channel: ch, logger: l}
}

func (s *LogStrategy) Channel() Channel {
	return s.channel
}

func (s *LogStrategy) Send(ctx context.Context, req Request) (Result, error) {
	if req.To == "" {
		return Result{}, ErrMissingRecipient
	}
	if req.Body == "" && req.TemplateID == "" && req.Subject == "" {
		return Result{}, ErrEmptyContent
	}

	id := "log-" + uuid.NewString()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "message not sent: provider not configured",
		logger.Channel(s.channel.String()),
		logger.CorrelationID(id),
		slog.String("to", req.To),
		slog.String("subject", req.Subject),
		slog.String("body", req.Body),
		slog.String("template_id", req.TemplateID),
	)
	return Result{Channel: s.channel, ProviderID: id, ProviderStatus: "logged"}, nil
}
