package tipbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
	"github.com/vrsc-tipbot/tipbot/pkg/retry"
)

// Options tunes the TipBot. Zero values fall back to defaults.
type Options struct {
	// WithdrawFee is charged on top of every withdrawal. Nil means DefaultWithdrawFee;
	// a pointer to zero disables the fee.
	WithdrawFee *models.Amount
	// AddressRetry bounds the getnewaddress retries.
	AddressRetry retry.Policy
	// OperationRetry bounds the polling for a withdrawal's txid.
	OperationRetry retry.Policy
}

// DefaultWithdrawFee is 0.0001 VRSC.
const DefaultWithdrawFee = models.Amount(10_000)

// TipBot is the ledger: balances, address bindings, the journal and the distribution engine.
// It holds no balance state of its own; every mutation is an atomic database statement.
type TipBot struct {
	logger *logger.Logger
	opts   Options

	repo     models.Repository
	node     models.BlockchainService
	notifier models.NotificationService
	now      func() time.Time
	newUUID  func() string
}

func NewTipBot(
	repo models.Repository,
	node models.BlockchainService,
	notifier models.NotificationService,
	logger *logger.Logger,
	opts Options,
) *TipBot {
	if opts.WithdrawFee == nil {
		fee := DefaultWithdrawFee
		opts.WithdrawFee = &fee
	}
	if opts.AddressRetry.Attempts == 0 {
		opts.AddressRetry = retry.DefaultPolicy
	}
	if opts.OperationRetry.Attempts == 0 {
		opts.OperationRetry = retry.Policy{Attempts: 30, InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}
	}
	return &TipBot{
		logger:   logger,
		opts:     opts,
		repo:     repo,
		node:     node,
		notifier: notifier,
		now:      time.Now,
		newUUID:  newEventID,
	}
}

// GetBalance returns 0 for users that never held funds.
func (t *TipBot) GetBalance(ctx context.Context, userID string) (models.Amount, error) {
	return t.repo.GetBalance(ctx, userID)
}

// GetOrCreateAddress returns the user's deposit address, generating one on first use.
func (t *TipBot) GetOrCreateAddress(ctx context.Context, userID string) (string, error) {
	address, ok, err := t.repo.GetAddress(ctx, userID)
	if err != nil {
		return "", err
	}
	if ok {
		t.logger.Debug("Address already stored", "discord_id", userID)
		return address, nil
	}

	err = retry.Do(ctx, t.opts.AddressRetry, func(attempt int, err error, wait time.Duration) {
		t.logger.Warn("Didn't get address, trying again", "discord_id", userID, "attempt", attempt, "retry_in", wait, "error", err)
	}, func(ctx context.Context) error {
		var genErr error
		address, genErr = t.node.NewAddress(ctx)
		return genErr
	})
	if err != nil {
		t.logger.Error("Failed to generate address", "discord_id", userID, "error", err)
		return "", fmt.Errorf("%w: %s", models.ErrAddressGenerationFailed, err)
	}

	if err := t.repo.StoreNewAddress(ctx, userID, address); err != nil {
		if !errors.Is(err, models.ErrAddressAlreadyBound) {
			return "", err
		}
		// A concurrent request won; its address is the one that counts.
		existing, ok, getErr := t.repo.GetAddress(ctx, userID)
		if getErr != nil {
			return "", getErr
		}
		if !ok {
			return "", fmt.Errorf("%w: address binding vanished for %s", models.ErrPersistence, userID)
		}
		t.logger.Info("Address was created concurrently, discarding the new one", "discord_id", userID, "discarded", address)
		return existing, nil
	}

	t.logger.Info("Stored new deposit address", "discord_id", userID, "address", address)
	return address, nil
}

func (t *TipBot) ResolveAddress(ctx context.Context, userID string) (string, bool, error) {
	return t.repo.GetAddress(ctx, userID)
}

func (t *TipBot) ResolveUser(ctx context.Context, address string) (string, bool, error) {
	return t.repo.GetUserByAddress(ctx, address)
}

func (t *TipBot) SetNotificationPreference(ctx context.Context, userID string, pref models.NotificationPreference) error {
	if _, err := models.ParseNotificationPreference(string(pref)); err != nil {
		return err
	}
	return t.repo.SetNotificationSetting(ctx, userID, pref)
}

// GetEvent returns every journal record of one logical event, in insertion order.
func (t *TipBot) GetEvent(ctx context.Context, eventID string) ([]*models.Transaction, error) {
	records, err := t.repo.GetTransactionsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records for event %s", models.ErrNotFound, eventID)
	}
	return records, nil
}

func strPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

// AmountPtr is a helper for optional amounts such as Options.WithdrawFee.
func AmountPtr(a models.Amount) *models.Amount {
	return &a
}
