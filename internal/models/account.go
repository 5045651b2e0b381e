package models

import (
	"fmt"
	"strings"
)

// DiscordUser binds a Discord user to its VRSC deposit address.
type DiscordUser struct {
	// DiscordID is the Discord snowflake of the user.
	DiscordID string `json:"discord_id" gorm:"column:discord_id;primaryKey;size:32"`
	// VrscAddress is the deposit address. It is assigned once and never changed.
	VrscAddress string `json:"vrsc_address" gorm:"column:vrsc_address;uniqueIndex;not null"`
}

func (DiscordUser) TableName() string {
	return "discord_users"
}

// Balance is the custodial balance of a user in satoshis.
type Balance struct {
	DiscordID string `json:"discord_id" gorm:"column:discord_id;primaryKey;size:32"`
	Balance   int64  `json:"balance" gorm:"column:balance;not null;default:0;check:chk_balance_vrsc_non_negative,balance >= 0"`
}

func (Balance) TableName() string {
	return "balance_vrsc"
}

// NotificationPreference controls how a user learns about received tips.
type NotificationPreference string

const (
	NotificationAll         NotificationPreference = "all"
	NotificationChannelOnly NotificationPreference = "channel_only"
	NotificationDMOnly      NotificationPreference = "dm_only"
	NotificationOff         NotificationPreference = "off"

	// DefaultNotification applies to users without a stored setting.
	DefaultNotification = NotificationChannelOnly
)

// ParseNotificationPreference accepts the stored values as well as the command
// choices (All, ChannelOnly, DMOnly, Off).
func ParseNotificationPreference(s string) (NotificationPreference, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "all":
		return NotificationAll, nil
	case "channelonly":
		return NotificationChannelOnly, nil
	case "dmonly":
		return NotificationDMOnly, nil
	case "off":
		return NotificationOff, nil
	}
	return "", fmt.Errorf("unknown notification preference %q", s)
}

type NotificationSetting struct {
	DiscordID    string                 `json:"discord_id" gorm:"column:discord_id;primaryKey;size:32"`
	Notification NotificationPreference `json:"notification" gorm:"column:notification;size:16;not null"`
}

func (NotificationSetting) TableName() string {
	return "notification_settings"
}
