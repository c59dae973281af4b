package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/example/moonjewelry/pkg/config"
	"github.com/example/moonjewelry/pkg/models"
	"go.uber.org/zap"
)

// EmailSender is the part of the SES client the mailer uses.
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESMailer struct {
	client EmailSender
	sender string
	logger *zap.Logger
}

func NewSESMailer(ctx context.Context, cfg *config.MailConfig, logger *zap.Logger) (*SESMailer, error) {
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("mail.sender_email is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return NewMailer(ses.NewFromConfig(awsCfg), cfg.SenderEmail, logger), nil
}

func NewMailer(client EmailSender, sender string, logger *zap.Logger) *SESMailer {
	return &SESMailer{client: client, sender: sender, logger: logger}
}

func (m *SESMailer) SendOrderConfirmation(ctx context.Context, order models.Order) error {
	if order.Email == "" {
		return fmt.Errorf("order %d has no email address", order.ID)
	}

	subject := fmt.Sprintf("Moon Jewelry order #%d confirmation", order.ID)
	text, page := confirmationBody(order)

	input := &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{order.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(page)},
				Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(text)},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Info("Order confirmation sent", zap.Uint("order_id", order.ID))
	return nil
}

func confirmationBody(order models.Order) (string, string) {
	var text, page strings.Builder

	fmt.Fprintf(&text, "Dear %s,\n\nThank you for your order #%d.\n\n", order.FullName, order.ID)
	fmt.Fprintf(&page, "<html><body><p>Dear %s,</p><p>Thank you for your order #%d.</p><ul>", html.EscapeString(order.FullName), order.ID)
	for _, item := range order.Items {
		name := item.Jewelry.Name
		if name == "" {
			name = fmt.Sprintf("Item %d", item.JewelryID)
		}
		fmt.Fprintf(&text, "- %s x%d  $%s\n", name, item.Quantity, item.TotalPrice().StringFixed(2))
		fmt.Fprintf(&page, "<li>%s x%d: $%s</li>", html.EscapeString(name), item.Quantity, item.TotalPrice().StringFixed(2))
	}
	fmt.Fprintf(&text, "\nTotal: $%s\n\nWe will email you again when your order ships.\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(&page, "</ul><p><strong>Total: $%s</strong></p><p>We will email you again when your order ships.</p></body></html>",
		order.TotalAmount.StringFixed(2))

	return text.String(), page.String()
}
