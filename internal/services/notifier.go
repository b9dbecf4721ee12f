package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/platform/mailer"
)

// MailNotifierDeps bundles collaborators required to construct the notifier.
type MailNotifierDeps struct {
	Sender mailer.Sender
	From   string
}

type mailNotifier struct {
	sender mailer.Sender
	from   string
}

var _ Notifier = (*mailNotifier)(nil)

// NewMailNotifier assembles the email side-channel for terminal job outcomes.
func NewMailNotifier(deps MailNotifierDeps) (Notifier, error) {
	if deps.Sender == nil {
		return nil, errors.New("mail notifier: sender is required")
	}
	return &mailNotifier{sender: deps.Sender, from: deps.From}, nil
}

// ImportFinished emails the requesting principal with the job outcome.
func (n *mailNotifier) ImportFinished(ctx context.Context, recipient domain.User, rec ImportJobRecord) error {
	if n == nil || n.sender == nil {
		return errors.New("mail notifier not initialised")
	}
	if strings.TrimSpace(recipient.Email) == "" {
		return errors.New("mail notifier: recipient has no email address")
	}

	msg := mailer.Message{
		Subject:    fmt.Sprintf("Catalog import %s %s", rec.ID, rec.Status),
		Body:       renderOutcome(rec),
		From:       n.from,
		Recipients: []string{recipient.Email},
	}
	return n.sender.Send(ctx, msg)
}

func renderOutcome(rec ImportJobRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Import job %s for %s finished with status %s.\n", rec.ID, rec.URL, rec.Status)
	if rec.Status == domain.ImportJobStatusSucceeded {
		fmt.Fprintf(&b, "Created %d offers, skipped %d.\n", rec.CreatedCount, rec.SkippedCount)
		return b.String()
	}
	if rec.ErrorKind != domain.ImportErrorNone {
		fmt.Fprintf(&b, "Failure kind: %s.\n", rec.ErrorKind)
	}
	if rec.ErrorMessage != "" {
		fmt.Fprintf(&b, "Detail: %s\n", rec.ErrorMessage)
	}
	return b.String()
}
