// Package notification provides NotificationPort implementations: an SMTP
// email sender, a structured-log notifier, and a fan-out composite.
package notification

import (
	"context"

	"github.com/erp/backend/internal/domain/procurement"
	"go.uber.org/zap"
)

// LogNotifier records notifications in the application log. It backs local
// runs and acts as the always-on delivery channel next to email.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(ctx context.Context, notif procurement.Notification) error {
	n.logger.Info("Purchase order notification",
		zap.String("po_number", notif.PONumber),
		zap.String("kind", string(notif.Kind)),
		zap.String("recipient", notif.Recipient),
		zap.String("subject", notif.Subject),
		zap.String("message", notif.Message))
	return nil
}
