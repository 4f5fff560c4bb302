package notify

import (
	"context"
	"fmt"

	"ewintr.nl/tubedigest/model"
	"github.com/resend/resend-go/v2"
	"golang.org/x/exp/slog"
)

// Notifier mails a summary to the subscriber list and returns the message id
// assigned by the mail service.
type Notifier interface {
	NewVideo(ctx context.Context, channelName string, video model.Video, summary string) (string, error)
}

type Resend struct {
	client      *resend.Client
	from        string
	subscribers []string
	logger      *slog.Logger
}

func NewResend(apiKey, from string, subscribers []string, logger *slog.Logger) *Resend {
	return &Resend{
		client:      resend.NewClient(apiKey),
		from:        from,
		subscribers: subscribers,
		logger:      logger,
	}
}

func (r *Resend) NewVideo(ctx context.Context, channelName string, video model.Video, summary string) (string, error) {
	if len(r.subscribers) == 0 {
		return "", fmt.Errorf("no subscribers configured")
	}

	body, err := renderEmail(channelName, video, summary)
	if err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	subject := fmt.Sprintf("[YouTube Summary] %s - %s", channelName, video.Title)

	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      r.subscribers,
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	r.logger.Info("email sent", slog.String("subject", subject), slog.String("id", sent.Id))

	return sent.Id, nil
}
