package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SecurityNotice is a plain-text message about a change to an account.
type SecurityNotice struct {
	Subject string
	Body    string
}

var (
	NoticePasswordChanged = SecurityNotice{
		Subject: "Your password was changed",
		Body:    "The password for your Nexus Jurídico account was just changed. If this was not you, contact your administrator immediately.",
	}
	NoticePasswordReset = SecurityNotice{
		Subject: "Your password was reset",
		Body:    "The password for your Nexus Jurídico account was reset and every active session was signed out.",
	}
	NoticeAccessRevoked = SecurityNotice{
		Subject: "Your sessions were revoked",
		Body:    "An administrator signed your Nexus Jurídico account out of every device.",
	}
)

// Notifier delivers security notices to account holders.
type Notifier interface {
	Notify(ctx context.Context, to string, notice SecurityNotice) error
}

// NoopNotifier drops every notice. Used when no sender address is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string, SecurityNotice) error { return nil }

// sesAPI is the part of the SES client the notifier uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends notices through AWS SES. Every send is bounded by timeout.
type SESNotifier struct {
	client      sesAPI
	fromAddress string
	timeout     time.Duration
	logger      *slog.Logger
}

func NewSESNotifier(region, fromAddress string, timeout time.Duration, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESNotifier(ses.NewFromConfig(cfg), fromAddress, timeout, logger), nil
}

func newSESNotifier(client sesAPI, fromAddress string, timeout time.Duration, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:      client,
		fromAddress: fromAddress,
		timeout:     timeout,
		logger:      logger,
	}
}

func (n *SESNotifier) Notify(ctx context.Context, to string, notice SecurityNotice) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(notice.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(notice.Body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send security notice: %w", err)
	}

	n.logger.Debug("security notice sent", slog.String("subject", notice.Subject))
	return nil
}
