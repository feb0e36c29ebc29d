package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes events to the log. It is the default when no broker is
// configured and the fallback when the broker is unhealthy.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, e Event) error {
	n.logger.InfoContext(ctx, "verification notification",
		"event_id", e.ID.String(),
		"type", string(e.Type),
		"user_id", e.UserID,
		"verified", e.Verified,
		"pending", e.Pending,
		"trust_score", e.TrustScore,
		"previous_score", e.PreviousScore,
	)
	return nil
}
