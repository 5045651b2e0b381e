package models

import "context"

// TipBotI is the ledger surface exposed to command handlers and the deposit watcher.
// Blacklist checks happen in the callers before any of these are invoked.
type TipBotI interface {
	GetBalance(ctx context.Context, userID string) (Amount, error)
	GetOrCreateAddress(ctx context.Context, userID string) (string, error)
	ResolveAddress(ctx context.Context, userID string) (string, bool, error)
	ResolveUser(ctx context.Context, address string) (string, bool, error)
	SetNotificationPreference(ctx context.Context, userID string, pref NotificationPreference) error

	IngestDeposit(ctx context.Context, deposit *Deposit) (*Transaction, error)
	IsDepositProcessed(ctx context.Context, txHash string) (bool, error)
	Withdraw(ctx context.Context, userID, address string, amount Amount) (*Withdrawal, error)

	Distribute(ctx context.Context, req *DistributionRequest) (*DistributionResult, error)
	GetEvent(ctx context.Context, eventID string) ([]*Transaction, error)
}

// APIServer is the internal HTTP API.
type APIServer interface {
	Start()
	Shutdown() error
}
