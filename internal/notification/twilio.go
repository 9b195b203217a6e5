package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier sends SMS through the Twilio Messages API.
type TwilioNotifier struct {
	api    messageCreator
	from   string
	logger *logrus.Logger
}

func NewTwilioNotifier(accountSID, authToken, from string, logger *logrus.Logger) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{
		api:    client.Api,
		from:   from,
		logger: logger,
	}
}

func (n *TwilioNotifier) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.from)
	params.SetBody(body)

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		n.logger.WithError(err).WithField("to", to).Error("Failed to send SMS")
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	n.logger.WithFields(logrus.Fields{
		"to":  to,
		"sid": sid,
	}).Info("SMS sent")
	return nil
}
