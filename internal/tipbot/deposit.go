package tipbot

import (
	"context"
	"fmt"

	"github.com/vrsc-tipbot/tipbot/internal/models"
)

func (t *TipBot) IsDepositProcessed(ctx context.Context, txHash string) (bool, error) {
	return t.repo.IsDepositProcessed(ctx, txHash)
}

// IngestDeposit credits an on-chain payment exactly once per tx hash.
// The journal insert and the credit commit together; a replay returns
// ErrDepositAlreadyProcessed and changes nothing.
func (t *TipBot) IngestDeposit(ctx context.Context, deposit *models.Deposit) (*models.Transaction, error) {
	if deposit.TxHash == "" {
		return nil, fmt.Errorf("%w: deposit without tx hash", models.ErrInvalidAmount)
	}
	if deposit.Amount <= 0 {
		return nil, fmt.Errorf("%w: deposit of %d", models.ErrInvalidAmount, deposit.Amount)
	}

	userID := deposit.UserID
	if userID == "" {
		id, ok, err := t.repo.GetUserByAddress(ctx, deposit.Address)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: no user for address %s", models.ErrNotFound, deposit.Address)
		}
		userID = id
	}

	record := &models.Transaction{
		UUID:              t.newUUID(),
		DiscordID:         userID,
		TransactionID:     strPtr(deposit.TxHash),
		TransactionAction: models.ActionDeposit,
		Amount:            deposit.Amount.Sats(),
		CreatedAt:         t.now(),
	}

	err := t.repo.Transaction(ctx, func(tx models.Repository) error {
		processed, err := tx.IsDepositProcessed(ctx, deposit.TxHash)
		if err != nil {
			return err
		}
		if processed {
			return models.ErrDepositAlreadyProcessed
		}
		if err := tx.RecordTransactions(ctx, record); err != nil {
			return err
		}
		return tx.Credit(ctx, userID, deposit.Amount)
	})
	if err != nil {
		t.logger.Warn("Deposit not ingested", "tx_hash", deposit.TxHash, "discord_id", userID, "error", err)
		return nil, err
	}

	t.logger.Info("Deposit credited", "tx_hash", deposit.TxHash, "discord_id", userID, "amount", deposit.Amount.String())
	return record, nil
}
