// Package notify delivers best-effort admin notifications over SNS and SES.
// Delivery failures are logged and swallowed; the pipeline never blocks on
// a notification.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	appconfig "event-assistant/internal/common/config"
	stderrors "event-assistant/internal/common/errors"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"
)

// Notifier fans moderation outcomes and governance digests out to admins.
type Notifier interface {
	AlertRejected(ctx context.Context, ev models.EventContent, verdict models.ModerationVerdict)
	SendDigest(ctx context.Context, subject, body string)
}

// AWSNotifier implements Notifier on SNS (alerts) and SES (digest mail).
type AWSNotifier struct {
	sns    *sns.Client
	ses    *ses.Client
	cfg    appconfig.NotificationConfig
	logger logger.Logger
}

func NewAWSNotifier(ctx context.Context, cfg appconfig.NotificationConfig, log logger.Logger) (*AWSNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &AWSNotifier{
		sns:    sns.NewFromConfig(awsCfg),
		ses:    ses.NewFromConfig(awsCfg),
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}, nil
}

// AlertRejected publishes a rejection alert. Failures are logged only.
func (n *AWSNotifier) AlertRejected(ctx context.Context, ev models.EventContent, verdict models.ModerationVerdict) {
	if n.cfg.SNSTopicARN == "" {
		return
	}
	msg := fmt.Sprintf("Event submission rejected (risk %.2f)\nTitle: %s\nWarnings: %s",
		verdict.RiskScore, ev.Title, strings.Join(verdict.Warnings, "; "))

	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.SNSTopicARN),
		Subject:  aws.String("Moderation: event rejected"),
		Message:  aws.String(msg),
	})
	if err != nil {
		n.logger.Warn("rejected-event alert failed", map[string]interface{}{
			"error": stderrors.NewNotificationError("sns", err).Error(),
		})
	}
}

// SendDigest mails the governance digest to the configured recipients.
func (n *AWSNotifier) SendDigest(ctx context.Context, subject, body string) {
	if n.cfg.DigestFrom == "" || len(n.cfg.DigestEmails) == 0 {
		return
	}
	addrs := make([]string, len(n.cfg.DigestEmails))
	copy(addrs, n.cfg.DigestEmails)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.cfg.DigestFrom),
		Destination: &types.Destination{ToAddresses: addrs},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.Warn("digest mail failed", map[string]interface{}{
			"error": stderrors.NewNotificationError("ses", err).Error(),
		})
	}
}

// NoOpNotifier satisfies Notifier when notifications are disabled.
type NoOpNotifier struct{}

func (NoOpNotifier) AlertRejected(context.Context, models.EventContent, models.ModerationVerdict) {}
func (NoOpNotifier) SendDigest(context.Context, string, string)                                   {}
