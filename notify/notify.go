// Package notify delivers customer-facing messages. The engine speaks to
// a Messenger; SMS, email, or anything else plugs in behind it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dee-mee/aquatrack/types"
)

// Messenger sends a message to a phone number.
type Messenger interface {
	Send(ctx context.Context, phone, message string) error
}

// MessengerFunc adapts a function to the Messenger interface.
type MessengerFunc func(ctx context.Context, phone, message string) error

func (f MessengerFunc) Send(ctx context.Context, phone, message string) error {
	return f(ctx, phone, message)
}

// SMSLogger is a development Messenger that writes messages to the log
// instead of an SMS provider.
type SMSLogger struct {
	logger *slog.Logger
}

// NewSMSLogger creates a log-backed messenger.
func NewSMSLogger(logger *slog.Logger) *SMSLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMSLogger{logger: logger}
}

func (s *SMSLogger) Send(ctx context.Context, phone, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("sms dispatched", "phone", phone, "message", message)
	return nil
}

// ReminderMessage renders the payment reminder sent for an outstanding bill.
func ReminderMessage(customerName, period string, amount types.Money, dueDate time.Time) string {
	return fmt.Sprintf(
		"Hello %s, this is a reminder that your AquaTrack bill for %s of %s is due on %s. Thank you.",
		customerName, period, amount.String(), dueDate.Format("2 January 2006"),
	)
}
