// internal/adapter/sms.go
package adapter

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"notify-engine/internal/common/logger"
	"notify-engine/internal/models"
)

// SNSService is the slice of the SNS client this adapter needs; defined as
// an interface for mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSAdapter delivers SMS through AWS SNS.
type SMSAdapter struct {
	client   SNSService
	senderID string
	logger   logger.Logger
}

func NewSMSAdapter(client SNSService, senderID string, log logger.Logger) *SMSAdapter {
	return &SMSAdapter{
		client:   client,
		senderID: senderID,
		logger:   log.WithFields(map[string]interface{}{"adapter": "sms"}),
	}
}

func (a *SMSAdapter) Channel() models.Channel { return models.ChannelSMS }

func (a *SMSAdapter) Send(ctx context.Context, n *models.Notification, rcpt models.Recipient, msg Message) Result {
	if rcpt.Phone == "" {
		return missingFieldResult("phone")
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(rcpt.Phone),
		Message:     aws.String(msg.Body),
	}
	if a.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(a.senderID),
			},
		}
	}

	out, err := a.client.Publish(ctx, input)
	if err != nil {
		a.logger.Error("SMS send failed", map[string]interface{}{
			"notificationId": n.ID,
			"phone":          rcpt.Phone,
			"error":          err,
		})
		return failureResult(models.ChannelSMS, err)
	}

	metadata := map[string]string{}
	if out != nil && out.MessageId != nil {
		metadata["messageId"] = *out.MessageId
	}
	return successResult(metadata)
}
