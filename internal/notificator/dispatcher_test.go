package notificator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsc-tipbot/tipbot/internal/discord/discordtest"
	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

type staticPrefs struct {
	prefs map[string]models.NotificationPreference
	err   error
}

func (s staticPrefs) GetNotificationSettings(_ context.Context, ids []string) (map[string]models.NotificationPreference, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]models.NotificationPreference{}
	for _, id := range ids {
		if p, ok := s.prefs[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *recordingAlerter) Alert(_ context.Context, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, msg)
}

func TestDecide(t *testing.T) {
	assert.Equal(t, Decision{Channel: true, Mention: true, DM: true}, Decide(models.NotificationAll))
	assert.Equal(t, Decision{Channel: true, Mention: true, DM: false}, Decide(models.NotificationChannelOnly))
	assert.Equal(t, Decision{Channel: true, Mention: false, DM: true}, Decide(models.NotificationDMOnly))
	assert.Equal(t, Decision{Channel: true, Mention: false, DM: false}, Decide(models.NotificationOff))
	assert.Equal(t, Decide(models.DefaultNotification), Decide(""))
}

func TestNotifySingleRecipient(t *testing.T) {
	chat := discordtest.NewChat()
	d := NewDispatcher(logger.NewNop(), staticPrefs{prefs: map[string]models.NotificationPreference{
		"r": models.NotificationAll,
	}}, chat, nil)

	warnings := d.NotifyTip(context.Background(), &models.TipNotification{
		ChannelID:    "channel",
		Sender:       "s",
		Recipients:   []string{"r"},
		Kind:         models.ActionTipDirect,
		Total:        150_000_000,
		PerRecipient: 150_000_000,
	})
	assert.Empty(t, warnings)

	sent := chat.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "<@s> just tipped <@r> 1.5 VRSC!", sent[0].Message.Content)
	assert.Equal(t, []string{"s", "r"}, sent[0].Message.Mentions)
	assert.Equal(t, []string{"You just got tipped 1.5 VRSC from <@s>!"}, chat.DMsTo("r"))
}

func TestNotifyHonoursPreferences(t *testing.T) {
	chat := discordtest.NewChat()
	d := NewDispatcher(logger.NewNop(), staticPrefs{prefs: map[string]models.NotificationPreference{
		"all": models.NotificationAll,
		"dm":  models.NotificationDMOnly,
		"off": models.NotificationOff,
	}}, chat, nil)

	warnings := d.NotifyTip(context.Background(), &models.TipNotification{
		ChannelID:    "channel",
		Sender:       "s",
		Recipients:   []string{"all", "dm", "off", "default"},
		Kind:         models.ActionTipRole,
		Total:        100,
		PerRecipient: 25,
	})
	assert.Empty(t, warnings)

	sent := chat.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "<@s> just tipped 0.000001 VRSC to 4 users! (0.00000025 VRSC each)\n<@all> <@dm> <@off> <@default>", sent[0].Message.Content)
	assert.Equal(t, []string{"s", "all", "default"}, sent[0].Message.Mentions)

	assert.Len(t, chat.DMsTo("all"), 1)
	assert.Len(t, chat.DMsTo("dm"), 1)
	assert.Empty(t, chat.DMsTo("off"))
	assert.Empty(t, chat.DMsTo("default"))
}

func TestNotifyFailuresAreWarnings(t *testing.T) {
	chat := discordtest.NewChat()
	chat.Block("r1")
	alerter := &recordingAlerter{}
	d := NewDispatcher(logger.NewNop(), staticPrefs{prefs: map[string]models.NotificationPreference{
		"r1": models.NotificationAll,
		"r2": models.NotificationAll,
	}}, chat, alerter)

	warnings := d.NotifyTip(context.Background(), &models.TipNotification{
		Sender:       "s",
		Recipients:   []string{"r1", "r2"},
		Kind:         models.ActionTipReactdrop,
		Total:        20,
		PerRecipient: 10,
	})
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], models.ErrExternalDelivery)
	assert.Contains(t, warnings[0].Error(), "r1")
	assert.Len(t, alerter.alerts, 1)

	// No channel id, no channel message; the unblocked DM still goes out.
	assert.Empty(t, chat.SentMessages())
	assert.Len(t, chat.DMsTo("r2"), 1)
}

func TestNotifyFallsBackWhenPreferencesFail(t *testing.T) {
	chat := discordtest.NewChat()
	chat.FailSends()
	d := NewDispatcher(logger.NewNop(), staticPrefs{err: errors.New("db down")}, chat, nil)

	warnings := d.NotifyTip(context.Background(), &models.TipNotification{
		ChannelID:    "channel",
		Sender:       "s",
		Recipients:   []string{"r"},
		PerRecipient: 1,
		Total:        1,
	})
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], models.ErrExternalDelivery)
	assert.Empty(t, chat.DMsTo("r"))
}

type panickingChat struct {
	*discordtest.Chat
}

func (panickingChat) DirectMessage(context.Context, string, string) error {
	panic("nil session")
}

func TestNotifyRecoversPanics(t *testing.T) {
	chat := panickingChat{Chat: discordtest.NewChat()}
	d := NewDispatcher(logger.NewNop(), staticPrefs{prefs: map[string]models.NotificationPreference{
		"r": models.NotificationDMOnly,
	}}, chat, nil)

	warnings := d.NotifyTip(context.Background(), &models.TipNotification{
		ChannelID: "channel", Sender: "s", Recipients: []string{"r"}, PerRecipient: 1, Total: 1,
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "panicked")
}
