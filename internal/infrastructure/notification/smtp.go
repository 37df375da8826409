package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// sendMailFunc matches smtp.SendMail, injectable for tests
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers notifications as plain-text email
type SMTPNotifier struct {
	cfg      config.NotificationConfig
	logger   *zap.Logger
	sendMail sendMailFunc
}

// NewSMTPNotifier creates an SMTPNotifier from the notification configuration
func NewSMTPNotifier(cfg config.NotificationConfig, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:      cfg,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Notify sends the notification to its recipient over SMTP
func (n *SMTPNotifier) Notify(ctx context.Context, notif procurement.Notification) error {
	if notif.Recipient == "" {
		return fmt.Errorf("notification for %s has no recipient", notif.PONumber)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	var auth smtp.Auth
	if n.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	}

	msg := buildMessage(n.cfg.FromAddress, notif)
	if err := n.sendMail(addr, auth, n.cfg.FromAddress, []string{notif.Recipient}, msg); err != nil {
		return fmt.Errorf("failed to send %s notification for %s: %w", notif.Kind, notif.PONumber, err)
	}

	n.logger.Info("Notification email sent",
		zap.String("po_number", notif.PONumber),
		zap.String("kind", string(notif.Kind)),
		zap.String("recipient", notif.Recipient))
	return nil
}

func buildMessage(from string, notif procurement.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", notif.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", notif.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(notif.Message)
	b.WriteString("\r\n")
	return []byte(b.String())
}
