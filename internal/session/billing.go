package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tabengine/internal/domain"
)

// Rounding selects how partial minutes are billed.
type Rounding string

const (
	// RoundCeil bills every started minute.
	RoundCeil Rounding = "ceil"
	// RoundFloor bills completed minutes only.
	RoundFloor Rounding = "floor"
)

// ParseRounding accepts "ceil" or "floor"; empty means RoundCeil.
func ParseRounding(s string) (Rounding, error) {
	switch Rounding(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoundCeil:
		return RoundCeil, nil
	case RoundFloor:
		return RoundFloor, nil
	default:
		return "", domain.NewValidationError("minute_rounding", "must be %q or %q, got %q", RoundCeil, RoundFloor, s)
	}
}

// Minutes converts elapsed seconds to billable minutes. A session always
// bills at least one minute.
func Minutes(elapsedSeconds int64, r Rounding) int64 {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	m := elapsedSeconds / 60
	if r != RoundFloor && elapsedSeconds%60 != 0 {
		m++
	}
	if m < 1 {
		m = 1
	}
	return m
}

// Amount prices minutes at an hourly rate, rounding half to even.
func Amount(ratePerHourCents, minutes int64) int64 {
	return decimal.NewFromInt(ratePerHourCents).
		Mul(decimal.NewFromInt(minutes)).
		Div(decimal.NewFromInt(60)).
		RoundBank(0).
		IntPart()
}

// Label is the order line name of a bill, e.g. "PS 2 players - 2 min".
func Label(mode domain.Mode, minutes int64) string {
	return fmt.Sprintf("%s - %d min", mode.Label(), minutes)
}

// Bill is the priced outcome of closing a session.
type Bill struct {
	Table          string      `json:"table"`
	Mode           domain.Mode `json:"mode"`
	ElapsedSeconds int64       `json:"elapsed_seconds"`
	Minutes        int64       `json:"minutes"`
	AmountCents    int64       `json:"amount_cents"`
	Label          string      `json:"label"`
	// RateMissing is set when no rate was configured and the bill is zero.
	RateMissing bool `json:"rate_missing,omitempty"`
}

// Compute prices s as of now. A nil rate bills zero.
func Compute(s domain.Session, now time.Time, rate *domain.Rate, r Rounding) Bill {
	elapsed := s.Elapsed(now)
	minutes := Minutes(elapsed, r)
	b := Bill{
		Table:          s.TableCode,
		Mode:           s.Mode,
		ElapsedSeconds: elapsed,
		Minutes:        minutes,
		Label:          Label(s.Mode, minutes),
	}
	if rate == nil {
		b.RateMissing = true
		return b
	}
	b.AmountCents = Amount(rate.PerHourCents, minutes)
	return b
}
