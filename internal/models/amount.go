package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// Ticker is the currency symbol used when rendering amounts.
	Ticker = "VRSC"
	// Decimals is the number of decimal places of one VRSC.
	Decimals = 8
	// SatsPerCoin is the number of smallest units in one VRSC.
	SatsPerCoin = 100_000_000
)

// Amount is a VRSC amount in satoshis.
type Amount int64

// AmountFromCoins converts a user facing coin value (e.g. 0.5) to satoshis.
// Anything below one satoshi is truncated.
func AmountFromCoins(coins float64) (Amount, error) {
	if math.IsNaN(coins) || math.IsInf(coins, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, coins)
	}
	d := decimal.NewFromFloat(coins).Shift(Decimals).Truncate(0)
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, coins)
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrArithmeticOverflow
	}
	return Amount(d.IntPart()), nil
}

// ParseAmount parses a decimal coin string such as "12.5" into satoshis.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	d = d.Shift(Decimals).Truncate(0)
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrArithmeticOverflow
	}
	return Amount(d.IntPart()), nil
}

func (a Amount) Sats() int64 {
	return int64(a)
}

// Coins returns the amount as a decimal number of VRSC.
func (a Amount) Coins() decimal.Decimal {
	return decimal.New(int64(a), -Decimals)
}

// String renders the amount like "1.5 VRSC".
func (a Amount) String() string {
	return a.Coins().String() + " " + Ticker
}

// CheckedAdd returns a+b or ErrArithmeticOverflow.
func (a Amount) CheckedAdd(b Amount) (Amount, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrArithmeticOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, ErrArithmeticOverflow
	}
	return a + b, nil
}

// CheckedMul returns a*n or ErrArithmeticOverflow.
func (a Amount) CheckedMul(n int64) (Amount, error) {
	if a == 0 || n == 0 {
		return 0, nil
	}
	if n < 0 || a < 0 {
		return 0, ErrArithmeticOverflow
	}
	if int64(a) > math.MaxInt64/n {
		return 0, ErrArithmeticOverflow
	}
	return Amount(int64(a) * n), nil
}

// CheckedDiv returns floor(a/n) or ErrArithmeticOverflow when n is not positive.
func (a Amount) CheckedDiv(n int64) (Amount, error) {
	if n <= 0 {
		return 0, ErrArithmeticOverflow
	}
	return Amount(int64(a) / n), nil
}
