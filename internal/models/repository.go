package models

import "context"

// Repository is the persistent store of balances, address bindings and the journal.
// Balance mutations are atomic in the database; callers never read-then-write.
type Repository interface {
	GetBalance(ctx context.Context, userID string) (Amount, error)
	Credit(ctx context.Context, userID string, amount Amount) error
	Debit(ctx context.Context, userID string, amount, fee Amount) error
	DebitMany(ctx context.Context, senderID string, legs []Leg) error

	GetAddress(ctx context.Context, userID string) (string, bool, error)
	GetUserByAddress(ctx context.Context, address string) (string, bool, error)
	StoreNewAddress(ctx context.Context, userID, address string) error

	RecordTransactions(ctx context.Context, records ...*Transaction) error
	IsDepositProcessed(ctx context.Context, txHash string) (bool, error)
	GetTransactionsByEvent(ctx context.Context, eventID string) ([]*Transaction, error)

	GetNotificationSettings(ctx context.Context, userIDs []string) (map[string]NotificationPreference, error)
	SetNotificationSetting(ctx context.Context, userID string, pref NotificationPreference) error

	// Transaction runs fn against a repository bound to a single database transaction.
	// Any error returned by fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}
