package notification

import (
	"context"
	"fmt"

	"fixify/models"
	"fixify/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Channel sends one rendered message over a single transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, record *models.NotificationRecord) error
}

// --- FCM push channel ---

type FCMChannel struct{}

func (FCMChannel) Name() string { return models.ChannelPush }

func (FCMChannel) Send(ctx context.Context, record *models.NotificationRecord) error {
	token := record.Recipient.FCMToken
	if token == "" {
		return fmt.Errorf("recipient %s has no FCM token", record.Recipient.ID)
	}
	if utils.FCMClient == nil {
		return fmt.Errorf("FCM client is not initialized")
	}

	data := map[string]string{
		"type": record.Type,
		"role": record.Recipient.Kind,
	}
	for k, v := range record.Data {
		data[k] = v
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: record.Title,
			Body:  record.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}
	return nil
}

// --- SES email channel ---

// SESService is the slice of the SES client we call, kept narrow for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESChannel struct {
	client SESService
	sender string
}

func NewSESChannel(ctx context.Context, region, sender string) (*SESChannel, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SESChannel{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

func (c *SESChannel) Name() string { return models.ChannelEmail }

func (c *SESChannel) Send(ctx context.Context, record *models.NotificationRecord) error {
	to := record.Recipient.Email
	if to == "" {
		return fmt.Errorf("recipient %s has no email address", record.Recipient.ID)
	}

	_, err := c.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(record.Title)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(record.Body)},
			},
		},
		Source: aws.String(c.sender),
	})
	if err != nil {
		return fmt.Errorf("failed to send SES email: %w", err)
	}
	return nil
}
