package models

import "context"

// BlockchainService is the subset of the Verus daemon RPC the ledger consumes.
type BlockchainService interface {
	// NewAddress asks the node wallet for a fresh deposit address.
	// Transient failures are expected; callers retry.
	NewAddress(ctx context.Context) (string, error)
	// SendCurrency pays amount to address and returns the async operation id.
	SendCurrency(ctx context.Context, address string, amount Amount) (string, error)
	// OperationTxID resolves a finished operation to its transaction hash.
	OperationTxID(ctx context.Context, opid string) (string, error)
}
