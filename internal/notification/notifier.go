package notification

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrSendFailed wraps every delivery failure so callers can tell it apart from store errors.
var ErrSendFailed = errors.New("notification delivery failed")

// Notifier delivers a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

// LogNotifier writes messages to the log instead of sending them. Development only.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, to, body string) error {
	n.logger.WithFields(logrus.Fields{
		"to":   to,
		"body": body,
	}).Info("SMS (logged for development)")
	return nil
}
