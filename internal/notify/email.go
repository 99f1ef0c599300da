package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const emailHTML = `<html><body><h2>%s</h2><p>%s</p><p style="color:#888">%s</p></body></html>`

// EmailNotifier 通过 SendGrid 发送邮件
type EmailNotifier struct {
	send      func(msg *mail.SGMailV3) error
	fromName  string
	fromEmail string
}

// NewEmailNotifier 创建 SendGrid 邮件通道
func NewEmailNotifier(apiKey, fromName, fromEmail string) *EmailNotifier {
	sgClient := sendgrid.NewSendClient(apiKey)
	return &EmailNotifier{
		send: func(msg *mail.SGMailV3) error {
			resp, err := sgClient.Send(msg)
			if err != nil {
				return err
			}
			if resp.StatusCode >= 300 {
				return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
			}
			return nil
		},
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (e *EmailNotifier) Name() string { return "sendgrid_email" }

func (e *EmailNotifier) Notify(_ context.Context, msg *Message) error {
	var errs []error
	from := mail.NewEmail(e.fromName, e.fromEmail)
	htmlBody := fmt.Sprintf(emailHTML, html.EscapeString(msg.Title), html.EscapeString(msg.Body), e.fromName)
	for _, r := range msg.Recipients {
		if r.Email == "" {
			continue
		}
		to := mail.NewEmail(r.Name, r.Email)
		if err := e.send(mail.NewSingleEmail(from, msg.Title, to, msg.Body, htmlBody)); err != nil {
			errs = append(errs, fmt.Errorf("email to %s: %w", r.Email, err))
		}
	}
	return errors.Join(errs...)
}
