package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Notifier composes and dispatches the end-of-run report.
type Notifier struct {
	composer *Composer
	mailer   *Mailer
}

// New creates a Notifier.
func New(composer *Composer, mailer *Mailer) *Notifier {
	return &Notifier{composer: composer, mailer: mailer}
}

// Send mails the ledger at ledgerPath. Failures are logged and returned;
// the ledger is already durable so callers treat them as non-fatal.
func (n *Notifier) Send(ctx context.Context, ledgerPath, recipient string, companyCount int, sectors []string) error {
	sector := JoinSectors(sectors)
	body := n.composer.Compose(ctx, companyCount, sector)

	err := n.mailer.Dispatch(ctx, ledgerPath, recipient, Subject(sector), body)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNoRecipient):
		zap.L().Error("notify: email not sent, configuration incomplete", zap.Error(err))
	default:
		zap.L().Error("notify: email not sent", zap.String("recipient", recipient), zap.Error(err))
	}
	return err
}
