package reactdrop

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// fineThreshold is the remaining time below which the countdown ticks every second.
	fineThreshold = 120
	coarseStep    = 60
	fineStep      = 1
)

// Unit is the unit of a requested reactdrop duration.
type Unit string

const (
	Hours   Unit = "hours"
	Minutes Unit = "minutes"
	Seconds Unit = "seconds"
)

// ParseUnit accepts "hours", "h", "Minutes", ...
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hours", "hour", "h":
		return Hours, nil
	case "minutes", "minute", "m", "min":
		return Minutes, nil
	case "seconds", "second", "s", "sec":
		return Seconds, nil
	}
	return "", fmt.Errorf("%w: unknown time unit %q", ErrInvalidDuration, s)
}

// maxDurationSeconds keeps drops at most one week long.
const maxDurationSeconds = 7 * 24 * 60 * 60

// ErrInvalidDuration wraps every rejected reactdrop duration.
var ErrInvalidDuration = errors.New("invalid duration")

var errTooLong = fmt.Errorf("%w: the maximum is %s", ErrInvalidDuration, time.Duration(maxDurationSeconds)*time.Second)

// ToSeconds converts a requested duration to seconds.
func ToSeconds(amount int, unit Unit) (int, error) {
	if amount < 1 {
		return 0, fmt.Errorf("%w: must be at least 1 %s", ErrInvalidDuration, unit)
	}
	if amount > maxDurationSeconds {
		return 0, errTooLong
	}
	var seconds int
	switch unit {
	case Hours:
		seconds = amount * 60 * 60
	case Minutes:
		seconds = amount * 60
	case Seconds:
		seconds = amount
	default:
		return 0, fmt.Errorf("%w: unknown time unit %q", ErrInvalidDuration, unit)
	}
	if seconds > maxDurationSeconds {
		return 0, errTooLong
	}
	return seconds, nil
}

// nextStep is how many seconds to wait before the next countdown update.
func nextStep(remaining int) int {
	if remaining > fineThreshold {
		return coarseStep
	}
	return fineStep
}

func remainingText(remaining int) string {
	if remaining > fineThreshold {
		return fmt.Sprintf("%d hour(s), %d minute(s)", remaining/60/60, (remaining/60)%60)
	}
	return fmt.Sprintf("%d seconds", remaining)
}
