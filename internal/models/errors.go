package models

import "errors"

var (
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrArithmeticOverflow      = errors.New("arithmetic overflow")
	ErrAmountTooSmall          = errors.New("amount too small to split")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidEmoji            = errors.New("invalid emoji")
	ErrInvalidAddress          = errors.New("invalid address")
	ErrAddressGenerationFailed = errors.New("address generation failed")
	ErrPersistence             = errors.New("persistence failure")
	ErrExternalDelivery        = errors.New("external delivery failure")
	ErrDepositAlreadyProcessed = errors.New("deposit already processed")
	ErrNotFound                = errors.New("not found")
	// ErrAddressAlreadyBound is returned when a user already owns a deposit address.
	ErrAddressAlreadyBound = errors.New("address already bound")
)

// ErrOperationPending is returned while an asynchronous node operation is still executing.
var ErrOperationPending = errors.New("operation pending")

// ErrOperationFailed means the node gave up on an asynchronous operation; nothing was sent.
var ErrOperationFailed = errors.New("operation failed")
