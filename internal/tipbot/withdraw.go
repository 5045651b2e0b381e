package tipbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/retry"
	"github.com/vrsc-tipbot/tipbot/pkg/validation"
)

// Withdraw pays amount to an external address and charges amount + fee.
//
// The balance is debited before the node is asked to pay, so two concurrent
// withdrawals can never both spend the same funds. If the node refuses the payment
// the debit is reversed.
func (t *TipBot) Withdraw(ctx context.Context, userID, address string, amount models.Amount) (*models.Withdrawal, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidAddress, err)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal of %d", models.ErrInvalidAmount, amount)
	}
	fee := *t.opts.WithdrawFee
	charged, err := amount.CheckedAdd(fee)
	if err != nil {
		return nil, err
	}

	if err := t.repo.Debit(ctx, userID, amount, fee); err != nil {
		return nil, err
	}

	opid, err := t.node.SendCurrency(ctx, address, amount)
	if err != nil {
		t.logger.Error("Payment rejected by node, refunding", "discord_id", userID, "amount", amount.String(), "error", err)
		return nil, t.refund(ctx, userID, charged, fmt.Errorf("failed to send payment: %w", err))
	}

	txHash := ""
	var opFailure error
	err = retry.Do(ctx, t.opts.OperationRetry, nil, func(ctx context.Context) error {
		id, opErr := t.node.OperationTxID(ctx, opid)
		if errors.Is(opErr, models.ErrOperationFailed) {
			opFailure = opErr
			return nil
		}
		txHash = id
		return opErr
	})
	if opFailure != nil {
		t.logger.Error("Payment operation failed, refunding", "discord_id", userID, "opid", opid, "error", opFailure)
		return nil, t.refund(ctx, userID, charged, opFailure)
	}
	if err != nil {
		// Still executing or the node is unreachable. The coins may be on their way,
		// so the debit stands and the journal keeps the opid for reconciliation.
		t.logger.Warn("Could not resolve withdrawal txid", "opid", opid, "error", err)
	}

	withdrawal := &models.Withdrawal{
		EventID: t.newUUID(),
		UserID:  userID,
		Address: address,
		Amount:  amount,
		Fee:     fee,
		Opid:    opid,
		TxHash:  txHash,
	}
	record := &models.Transaction{
		UUID:              withdrawal.EventID,
		DiscordID:         userID,
		Opid:              strPtr(opid),
		TransactionAction: models.ActionWithdraw,
		Amount:            amount.Sats(),
		Fee:               int64Ptr(fee.Sats()),
		CreatedAt:         t.now(),
	}
	if txHash != "" {
		record.TransactionID = strPtr(txHash)
	}
	if err := t.repo.RecordTransactions(context.WithoutCancel(ctx), record); err != nil {
		t.logger.Error("Withdrawal sent but not journaled", "discord_id", userID, "opid", opid, "error", err)
		return withdrawal, err
	}

	t.logger.Info("Withdrawal sent", "discord_id", userID, "address", address, "amount", amount.String(), "opid", opid, "tx_hash", txHash)
	return withdrawal, nil
}

// refund reverses a withdrawal debit. It runs even if the caller gave up.
func (t *TipBot) refund(ctx context.Context, userID string, charged models.Amount, cause error) error {
	if err := t.repo.Credit(context.WithoutCancel(ctx), userID, charged); err != nil {
		t.logger.Error("Failed to refund withdrawal", "discord_id", userID, "amount", charged.String(), "error", err)
		return errors.Join(cause, err)
	}
	return cause
}
