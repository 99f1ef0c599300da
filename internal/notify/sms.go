package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSNotifier 通过 Twilio 向接收人手机发送短信
type SMSNotifier struct {
	send      func(params *twilioApi.CreateMessageParams) error
	fromPhone string
	// countryCode 拼接在 10 位本地号码前
	countryCode string
}

// NewSMSNotifier 创建 Twilio 短信通道
func NewSMSNotifier(accountSID, authToken, fromPhone string) *SMSNotifier {
	twClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSNotifier{
		send: func(params *twilioApi.CreateMessageParams) error {
			_, err := twClient.Api.CreateMessage(params)
			return err
		},
		fromPhone:   fromPhone,
		countryCode: "+91",
	}
}

func (s *SMSNotifier) Name() string { return "twilio_sms" }

func (s *SMSNotifier) Notify(_ context.Context, msg *Message) error {
	var errs []error
	for _, r := range msg.Recipients {
		if r.Phone == "" {
			continue
		}
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(s.countryCode + r.Phone)
		params.SetFrom(s.fromPhone)
		params.SetBody(msg.Title + " :: " + msg.Body)
		if err := s.send(params); err != nil {
			errs = append(errs, fmt.Errorf("sms to %s: %w", r.Name, err))
		}
	}
	return errors.Join(errs...)
}
