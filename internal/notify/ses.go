// Package notify sends the ambassador-facing reward confirmation email.
// Delivery is best effort: a failed notification is logged and never rolls
// back a settled credit.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/shopspring/decimal"

	appconfig "github.com/referlabs/referral-engine/internal/config"
	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
)

// SESNotifier sends reward confirmations through AWS SES v2.
type SESNotifier struct {
	client    *sesv2.Client
	fromEmail string
}

// NewSESNotifier creates an SES-backed notifier.
func NewSESNotifier(ctx context.Context, cfg appconfig.NotifyConfig) (*SESNotifier, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.SESRegion),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESNotifier{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
	}, nil
}

// RewardReleased emails the ambassador that a reward settled. Ambassadors
// without an email address are skipped silently.
func (n *SESNotifier) RewardReleased(ctx context.Context, amb *domain.Ambassador, ref *domain.Referral, amount decimal.Decimal) error {
	if amb.Email == "" {
		logger.Debug("reward notification skipped, ambassador has no email", "ambassador_id", amb.ID)
		return nil
	}

	subject := "You earned a referral reward"
	body := fmt.Sprintf(
		"Hi %s,\n\nA referral you made just completed and a reward of %s was added to your account. Your new balance is %s.\n\nThanks for spreading the word!\n",
		amb.Name, amount.StringFixed(2), amb.Credits.Add(amount).StringFixed(2),
	)

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{amb.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send reward notification: %w", err)
	}
	return nil
}
