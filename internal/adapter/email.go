// internal/adapter/email.go
package adapter

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
)

// SESService is the slice of the SES client this adapter needs; defined as
// an interface for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESEmailAdapter delivers email through AWS SES.
type SESEmailAdapter struct {
	client    SESService
	fromEmail string
	logger    logger.Logger
}

func NewSESEmailAdapter(client SESService, fromEmail string, log logger.Logger) *SESEmailAdapter {
	return &SESEmailAdapter{
		client:    client,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"adapter": "email_ses"}),
	}
}

func (a *SESEmailAdapter) Channel() models.Channel { return models.ChannelEmail }

func (a *SESEmailAdapter) Send(ctx context.Context, n *models.Notification, rcpt models.Recipient, msg Message) Result {
	if rcpt.Email == "" {
		return missingFieldResult("email")
	}

	out, err := a.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{rcpt.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
				Html: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(a.fromEmail),
	})
	if err != nil {
		a.logger.Error("email send failed", map[string]interface{}{
			"notificationId": n.ID,
			"email":          rcpt.Email,
			"error":          err,
		})
		return failureResult(models.ChannelEmail, err)
	}

	metadata := map[string]string{}
	if out != nil && out.MessageId != nil {
		metadata["messageId"] = *out.MessageId
	}
	return successResult(metadata)
}

// SMTPSender is the smtp.SendMail function shape, injectable for tests.
type SMTPSender func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPEmailAdapter delivers email through a plain SMTP relay, for
// deployments without AWS access.
type SMTPEmailAdapter struct {
	host     string
	port     int
	username string
	password string
	from     string
	send     SMTPSender
	logger   logger.Logger
}

func NewSMTPEmailAdapter(host string, port int, username, password, from string, log logger.Logger) *SMTPEmailAdapter {
	return &SMTPEmailAdapter{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		send:     smtp.SendMail,
		logger:   log.WithFields(map[string]interface{}{"adapter": "email_smtp"}),
	}
}

func (a *SMTPEmailAdapter) Channel() models.Channel { return models.ChannelEmail }

func (a *SMTPEmailAdapter) Send(ctx context.Context, n *models.Notification, rcpt models.Recipient, msg Message) Result {
	if rcpt.Email == "" {
		return missingFieldResult("email")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", a.from)
	fmt.Fprintf(&b, "To: %s\r\n", rcpt.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	var auth smtp.Auth
	if a.username != "" {
		auth = smtp.PlainAuth("", a.username, a.password, a.host)
	}

	// smtp.SendMail has no context support, so the call runs in its own
	// goroutine and the deadline is enforced here. A relay that stalls past
	// the per-send timeout becomes an ordinary failure instead of hanging
	// the dispatch cycle.
	addr := fmt.Sprintf("%s:%d", a.host, a.port)
	done := make(chan error, 1)
	go func() {
		done <- a.send(addr, auth, a.from, []string{rcpt.Email}, []byte(b.String()))
	}()

	select {
	case <-ctx.Done():
		a.logger.Error("email send timed out", map[string]interface{}{
			"notificationId": n.ID,
			"email":          rcpt.Email,
			"relay":          addr,
			"error":          ctx.Err(),
		})
		return failureResult(models.ChannelEmail, ctx.Err())
	case err := <-done:
		if err != nil {
			a.logger.Error("email send failed", map[string]interface{}{
				"notificationId": n.ID,
				"email":          rcpt.Email,
				"error":          err,
			})
			return failureResult(models.ChannelEmail, err)
		}
	}
	return successResult(nil)
}
