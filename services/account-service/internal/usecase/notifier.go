package usecase

import (
	"context"

	"github.com/vasapolrittideah/phone-auth-api/shared/notify"
)

// Notifier hands a text message to a delivery channel such as SMS.
type Notifier interface {
	Send(ctx context.Context, destination, message string) (*notify.Result, error)
}
