package notification

import (
	"context"
	"errors"

	"github.com/erp/backend/internal/domain/procurement"
)

// CompositeNotifier fans a notification out to every configured channel.
// Each channel gets its attempt even when an earlier one fails.
type CompositeNotifier struct {
	channels []procurement.NotificationPort
}

// NewCompositeNotifier creates a CompositeNotifier over the given channels
func NewCompositeNotifier(channels ...procurement.NotificationPort) *CompositeNotifier {
	return &CompositeNotifier{channels: channels}
}

// Notify delivers to all channels and joins their failures
func (n *CompositeNotifier) Notify(ctx context.Context, notif procurement.Notification) error {
	var errs []error
	for _, channel := range n.channels {
		if err := channel.Notify(ctx, notif); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
