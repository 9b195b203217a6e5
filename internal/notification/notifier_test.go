package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioNotifier_Send(t *testing.T) {
	logger, _ := test.NewNullLogger()
	creator := &fakeCreator{}
	n := &TwilioNotifier{api: creator, from: "+15550000000", logger: logger}

	if err := n.Send(context.Background(), "+919876543210", "Your OTP for Student Signup is: 1234"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if creator.params == nil {
		t.Fatal("CreateMessage was not called")
	}
	if *creator.params.To != "+919876543210" {
		t.Errorf("To = %q", *creator.params.To)
	}
	if *creator.params.From != "+15550000000" {
		t.Errorf("From = %q", *creator.params.From)
	}
	if *creator.params.Body != "Your OTP for Student Signup is: 1234" {
		t.Errorf("Body = %q", *creator.params.Body)
	}
}

func TestTwilioNotifier_SendFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	n := &TwilioNotifier{api: &fakeCreator{err: errors.New("boom")}, from: "+1", logger: logger}

	err := n.Send(context.Background(), "+919876543210", "hi")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("err = %v, want ErrSendFailed", err)
	}
}

func TestTwilioNotifier_CancelledContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	creator := &fakeCreator{}
	n := &TwilioNotifier{api: creator, from: "+1", logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, "+919876543210", "hi"); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("err = %v, want ErrSendFailed", err)
	}
	if creator.params != nil {
		t.Error("CreateMessage should not be called with a cancelled context")
	}
}

func TestLogNotifier_LogsMessage(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogNotifier(logger)

	if err := n.Send(context.Background(), "+919876543210", "Your OTP for Trainer Login is: 4321"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel {
		t.Fatalf("expected an info entry, got %+v", entry)
	}
	if entry.Data["to"] != "+919876543210" {
		t.Errorf("to = %v", entry.Data["to"])
	}
}
