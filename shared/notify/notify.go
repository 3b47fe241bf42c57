package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Result describes the outcome of handing a message to a delivery channel.
type Result struct {
	Success      bool
	MessageID    string
	Status       string
	Category     string
	ErrorMessage string
}

// LogNotifier writes messages to the log instead of delivering them. It is meant for local runs.
// The message body can carry a live one-time code, so it is only written at debug level.
type LogNotifier struct {
	logger *zerolog.Logger
}

// NewLogNotifier creates a new LogNotifier instance.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message and always succeeds.
func (n *LogNotifier) Send(_ context.Context, destination, message string) (*Result, error) {
	n.logger.Info().
		Str("destination", destination).
		Msg("message delivery skipped, logging instead")

	n.logger.Debug().
		Str("destination", destination).
		Str("message", message).
		Msg("undelivered message")

	return &Result{Success: true, Status: "LOGGED"}, nil
}
