// Package notify delivers notifications to a sink. Idempotency is the
// scheduler's job; the sink only needs IDs unique enough that it never
// stacks duplicates on its own.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mtholden/attend/internal/logging"
)

// Priority of a notification.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// Notification is one message for the user.
type Notification struct {
	ID       string
	Title    string
	Body     string
	Priority Priority
}

// NewID builds a sink-unique notification ID. The rule/day prefix keeps
// IDs readable in sink logs; the uuid suffix keeps repeatable rules from
// colliding.
func NewID(rule, day string) string {
	return fmt.Sprintf("%s-%s-%s", rule, day, uuid.NewString()[:8])
}

// Notifier is a notification sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. Always available; used as
// the fallback sink and in tests.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(_ context.Context, n Notification) error {
	logging.Info("notify", "[%s] %s: %s", n.Priority, n.Title, logging.Truncate(n.Body, 200))
	return nil
}
