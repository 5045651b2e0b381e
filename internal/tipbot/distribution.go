package tipbot

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vrsc-tipbot/tipbot/internal/models"
)

func newEventID() string {
	return uuid.New().String()
}

// Member is a candidate recipient as known to the command handler.
type Member struct {
	ID  string
	Bot bool
}

// FilterEligible drops bots and duplicates, keeping the first-seen order.
// Callers short-circuit when the result is empty.
func FilterEligible(members []Member) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m.Bot || m.ID == "" {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m.ID)
	}
	return out
}

// Split computes the per-recipient share and the amount actually taken from the sender.
// The flooring remainder stays with the sender.
func Split(gross models.Amount, recipients int) (perRecipient, total models.Amount, err error) {
	if gross <= 0 {
		return 0, 0, fmt.Errorf("%w: %d", models.ErrInvalidAmount, gross)
	}
	per, err := gross.CheckedDiv(int64(recipients))
	if err != nil {
		return 0, 0, models.ErrAmountTooSmall
	}
	if per == 0 {
		return 0, 0, models.ErrAmountTooSmall
	}
	total, err = per.CheckedMul(int64(recipients))
	if err != nil {
		return 0, 0, err
	}
	return per, total, nil
}

// Distribute splits req.Amount evenly over req.Recipients.
//
// The sender debit, every recipient credit and every journal record commit in one
// database transaction. Notifications go out only after the commit and can't undo it.
func (t *TipBot) Distribute(ctx context.Context, req *models.DistributionRequest) (*models.DistributionResult, error) {
	if !req.Kind.IsTip() {
		return nil, fmt.Errorf("unsupported distribution kind %q", req.Kind)
	}
	recipients := dedupe(req.Recipients)
	if len(recipients) == 0 {
		t.logger.Debug("No eligible recipients, nothing to distribute", "sender", req.Sender, "kind", req.Kind)
		return &models.DistributionResult{Outcome: models.OutcomeNoEligibleRecipients}, nil
	}

	per, total, err := Split(req.Amount, len(recipients))
	if err != nil {
		return nil, err
	}
	t.logger.Debug("Distributing tip", "sender", req.Sender, "kind", req.Kind, "recipients", len(recipients), "per_recipient", per.String())

	eventID := t.newUUID()
	now := t.now()
	legs := make([]models.Leg, 0, len(recipients))
	records := make([]*models.Transaction, 0, len(recipients))
	for _, id := range recipients {
		legs = append(legs, models.Leg{UserID: id, Amount: per})
		records = append(records, &models.Transaction{
			UUID:              eventID,
			DiscordID:         id,
			Counterparty:      strPtr(req.Sender),
			TransactionAction: req.Kind,
			Amount:            per.Sats(),
			CreatedAt:         now,
		})
	}

	err = t.repo.Transaction(ctx, func(tx models.Repository) error {
		if err := tx.DebitMany(ctx, req.Sender, legs); err != nil {
			return err
		}
		return tx.RecordTransactions(ctx, records...)
	})
	if err != nil {
		t.logger.Warn("Distribution aborted", "sender", req.Sender, "kind", req.Kind, "total", total.String(), "error", err)
		return nil, err
	}
	t.logger.Info("Tip distributed", "event_id", eventID, "sender", req.Sender, "kind", req.Kind,
		"recipients", len(recipients), "per_recipient", per.String(), "total", total.String())

	result := &models.DistributionResult{
		Outcome:        models.OutcomeDistributed,
		EventID:        eventID,
		Total:          total,
		PerRecipient:   per,
		RecipientCount: len(recipients),
	}
	if t.notifier != nil {
		warnings := t.notifier.NotifyTip(ctx, &models.TipNotification{
			ChannelID:    req.ChannelID,
			Sender:       req.Sender,
			Recipients:   recipients,
			Kind:         req.Kind,
			Total:        total,
			PerRecipient: per,
		})
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, w.Error())
		}
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
