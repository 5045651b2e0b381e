package notificator

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

// PreferenceReader loads notification preferences. Missing users get the default.
type PreferenceReader interface {
	GetNotificationSettings(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error)
}

// Decision says how one recipient hears about a tip.
// A channel line is always posted; Mention controls whether it pings.
type Decision struct {
	Channel bool
	Mention bool
	DM      bool
}

// Decide maps a preference to its delivery decision.
func Decide(pref models.NotificationPreference) Decision {
	switch pref {
	case models.NotificationAll:
		return Decision{Channel: true, Mention: true, DM: true}
	case models.NotificationDMOnly:
		return Decision{Channel: true, Mention: false, DM: true}
	case models.NotificationOff:
		return Decision{Channel: true, Mention: false, DM: false}
	default:
		return Decision{Channel: true, Mention: true, DM: false}
	}
}

// Dispatcher announces committed tips in the channel and by DM.
type Dispatcher struct {
	logger  *logger.Logger
	prefs   PreferenceReader
	chat    models.Chat
	alerter models.Alerter
}

func NewDispatcher(logger *logger.Logger, prefs PreferenceReader, chat models.Chat, alerter models.Alerter) *Dispatcher {
	if alerter == nil {
		alerter = NopAlerter{}
	}
	return &Dispatcher{logger: logger, prefs: prefs, chat: chat, alerter: alerter}
}

// safeCall runs a function with panic recovery
func (d *Dispatcher) safeCall(fn func() error, label string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Function panicked",
				"context", label,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%s panicked: %v", label, r)
		}
	}()
	return fn()
}

// NotifyTip never fails the tip. Every delivery problem comes back as a warning
// wrapping models.ErrExternalDelivery.
func (d *Dispatcher) NotifyTip(ctx context.Context, tip *models.TipNotification) []error {
	var warnings []error
	warn := func(what string, err error) {
		w := fmt.Errorf("%w: %s: %s", models.ErrExternalDelivery, what, err)
		d.logger.Warn("Tip notification not delivered", "what", what, "error", err)
		d.alerter.Alert(ctx, w.Error())
		warnings = append(warnings, w)
	}

	prefs, err := d.prefs.GetNotificationSettings(ctx, tip.Recipients)
	if err != nil {
		// Fall back to the default for everyone rather than staying silent.
		d.logger.Error("Failed to load notification settings", "error", err)
		prefs = map[string]models.NotificationPreference{}
	}

	decisions := make(map[string]Decision, len(tip.Recipients))
	for _, id := range tip.Recipients {
		pref, ok := prefs[id]
		if !ok {
			pref = models.DefaultNotification
		}
		decisions[id] = Decide(pref)
	}

	if tip.ChannelID != "" {
		msg := channelMessage(tip, decisions)
		err := d.safeCall(func() error {
			_, err := d.chat.Send(ctx, tip.ChannelID, msg)
			return err
		}, "channelNotification")
		if err != nil {
			warn("channel message", err)
		}
	}

	for _, id := range tip.Recipients {
		if !decisions[id].DM {
			continue
		}
		recipient := id
		content := fmt.Sprintf("You just got tipped %s from <@%s>!", tip.PerRecipient, tip.Sender)
		err := d.safeCall(func() error {
			return d.chat.DirectMessage(ctx, recipient, content)
		}, "dmNotification")
		if err != nil {
			warn("direct message to "+recipient, err)
		}
	}

	return warnings
}

// channelMessage renders the announcement. Mentions lists only the recipients
// whose decision allows a ping, plus the sender.
func channelMessage(tip *models.TipNotification, decisions map[string]Decision) *models.OutgoingMessage {
	msg := &models.OutgoingMessage{Mentions: []string{tip.Sender}}
	for _, id := range tip.Recipients {
		if decisions[id].Mention {
			msg.Mentions = append(msg.Mentions, id)
		}
	}

	if len(tip.Recipients) == 1 {
		msg.Content = fmt.Sprintf("<@%s> just tipped <@%s> %s!", tip.Sender, tip.Recipients[0], tip.PerRecipient)
		return msg
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<@%s> just tipped %s to %d users! (%s each)\n", tip.Sender, tip.Total, len(tip.Recipients), tip.PerRecipient)
	for i, id := range tip.Recipients {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "<@%s>", id)
	}
	msg.Content = b.String()
	return msg
}
