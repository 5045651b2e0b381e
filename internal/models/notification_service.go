package models

import "context"

// TipNotification describes a committed tip to announce.
type TipNotification struct {
	ChannelID    string
	Sender       string
	Recipients   []string
	Kind         Action
	Total        Amount
	PerRecipient Amount
}

type NotificationService interface {
	// NotifyTip announces a committed tip. The returned errors are soft warnings.
	NotifyTip(ctx context.Context, tip *TipNotification) []error
}

// Alerter forwards operational warnings to the bot operators.
type Alerter interface {
	Alert(ctx context.Context, message string)
}
