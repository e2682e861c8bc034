package notifier

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/shopspring/decimal"

	"app/internal/config"
)

// 注文確定メールをSESで送る。送信元が未設定ならnilを返し、通知は無効になる。
type EmailNotifier struct {
	client *ses.Client
	sender string
}

func NewEmailNotifier(ctx context.Context, cfg config.Config) (*EmailNotifier, error) {
	if cfg.SESSenderEmail == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return &EmailNotifier{
		client: ses.NewFromConfig(awsCfg),
		sender: cfg.SESSenderEmail,
	}, nil
}

// チェックアウト成功後のベストエフォート通知。失敗しても注文は成立済み。
func (n *EmailNotifier) OrderPlaced(ctx context.Context, toEmail string, orderNumber string, total decimal.Decimal) error {
	if toEmail == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	subject := fmt.Sprintf("Order %s Confirmation", orderNumber)
	totalStr := total.StringFixed(2)

	bodyText := fmt.Sprintf(
		"Thank you for your order!\n\nOrder Number: %s\nTotal Amount: %s\n\nWe'll send you another message when your order ships.",
		orderNumber, totalStr,
	)

	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(bodyText),
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
