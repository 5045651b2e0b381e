package models

import "time"

// Action is the kind of a journaled transaction.
type Action string

const (
	ActionDeposit      Action = "deposit"
	ActionWithdraw     Action = "withdraw"
	ActionTipDirect    Action = "tip-direct"
	ActionTipRole      Action = "tip-role"
	ActionTipReactdrop Action = "tip-reactdrop"
)

// IsTip reports whether the action moves funds between two users.
func (a Action) IsTip() bool {
	return a == ActionTipDirect || a == ActionTipRole || a == ActionTipReactdrop
}

// Transaction is one append-only journal record.
//
// Tips are stored from the recipient's side: DiscordID receives, Counterparty sends.
// All records of one multi-recipient tip share the same UUID.
type Transaction struct {
	ID uint `json:"-" gorm:"primarykey"`
	// UUID is the logical event id.
	UUID         string  `json:"uuid" gorm:"column:uuid;size:36;index;not null"`
	DiscordID    string  `json:"discord_id" gorm:"column:discord_id;size:32;index;not null"`
	Counterparty *string `json:"counterparty,omitempty" gorm:"column:counterparty;size:32"`
	// TransactionID is the on-chain tx hash for deposits and withdrawals.
	TransactionID     *string   `json:"transaction_id,omitempty" gorm:"column:transaction_id;uniqueIndex:idx_transactions_vrsc_deposit,where:transaction_action = 'deposit'"`
	Opid              *string   `json:"opid,omitempty" gorm:"column:opid"`
	TransactionAction Action    `json:"transaction_action" gorm:"column:transaction_action;size:16;not null"`
	Amount            int64     `json:"amount" gorm:"column:amount;not null"`
	Fee               *int64    `json:"fee,omitempty" gorm:"column:fee"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Transaction) TableName() string {
	return "transactions_vrsc"
}

// Leg is one credit of a multi-recipient debit.
type Leg struct {
	UserID string
	Amount Amount
}

// Deposit is an on-chain payment observed by the deposit watcher.
// Either Address or UserID identifies the receiving account.
type Deposit struct {
	TxHash  string
	Address string
	UserID  string
	Amount  Amount
}

// Withdrawal is the outcome of a successful withdraw.
type Withdrawal struct {
	EventID string
	UserID  string
	Address string
	Amount  Amount
	Fee     Amount
	Opid    string
	TxHash  string
}

// DistributionOutcome tells whether a distribution moved any funds.
type DistributionOutcome string

const (
	OutcomeDistributed          DistributionOutcome = "distributed"
	OutcomeNoEligibleRecipients DistributionOutcome = "no_eligible_recipients"
)

// DistributionRequest asks the engine to split Amount across Recipients.
type DistributionRequest struct {
	Sender     string
	Amount     Amount
	Recipients []string
	Kind       Action
	// ChannelID is where the tip announcement is posted. Empty means no channel message.
	ChannelID string
}

// DistributionResult is reported back to the caller for display.
type DistributionResult struct {
	Outcome        DistributionOutcome `json:"outcome"`
	EventID        string              `json:"event_id,omitempty"`
	Total          Amount              `json:"total"`
	PerRecipient   Amount              `json:"per_recipient"`
	RecipientCount int                 `json:"recipient_count"`
	// Warnings lists soft delivery failures. The balance mutation stands.
	Warnings []string `json:"warnings,omitempty"`
}
