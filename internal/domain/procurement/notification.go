package procurement

import (
	"context"
)

// NotificationKind labels outbound notifications
type NotificationKind string

const (
	NotificationKindApprovalRequired NotificationKind = "approval_required"
	NotificationKindApproved         NotificationKind = "approved"
	NotificationKindRejected         NotificationKind = "rejected"
	NotificationKindCompleted        NotificationKind = "completed"
	NotificationKindFailed           NotificationKind = "failed"
)

// Notification is an outbound alert about a purchase order
type Notification struct {
	PONumber  string           `json:"po_number"`
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	Subject   string           `json:"subject"`
	Message   string           `json:"message"`
}

// NotificationPort delivers notifications to interested parties.
// Delivery is best-effort: callers log failures and never propagate them.
type NotificationPort interface {
	Notify(ctx context.Context, n Notification) error
}
