package pricing

import (
	"errors"

	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

var (
	ErrInvalidDays = errors.New("pricing: day count must be positive")
	ErrInvalidRate = errors.New("pricing: daily rate must be positive")
	ErrInvalidFee  = errors.New("pricing: fee rate out of range")
)

// Platform commission defaults: 7% charged to the renter, 3% withheld from
// the lister payout. Rates are basis points so fee math stays in integers.
const (
	DefaultRenterFeeBps = 700
	DefaultListerFeeBps = 300

	bpsBase = 10_000
)

// Breakdown is the immutable price snapshot attached to a booking at request
// time. All amounts are integer minor units.
type Breakdown struct {
	Days         int
	DailyRate    money.Money
	Subtotal     money.Money
	RenterFee    money.Money
	ListerFee    money.Money
	Total        money.Money
	ListerPayout money.Money
}

// Quote prices a rental of the given inclusive day count. Rounding (half-up)
// is applied exactly once per fee line, never on intermediate values.
func Quote(days int, dailyRate money.Money, renterFeeBps, listerFeeBps int64) (Breakdown, error) {
	if days <= 0 {
		return Breakdown{}, ErrInvalidDays
	}
	if dailyRate.Amount <= 0 || dailyRate.Currency == "" {
		return Breakdown{}, ErrInvalidRate
	}
	if renterFeeBps < 0 || renterFeeBps >= bpsBase || listerFeeBps < 0 || listerFeeBps >= bpsBase {
		return Breakdown{}, ErrInvalidFee
	}

	subtotal := dailyRate.Multiply(int64(days))
	renterFee := money.Money{Amount: roundHalfUpBps(subtotal.Amount, renterFeeBps), Currency: subtotal.Currency}
	listerFee := money.Money{Amount: roundHalfUpBps(subtotal.Amount, listerFeeBps), Currency: subtotal.Currency}

	total, err := subtotal.Add(renterFee)
	if err != nil {
		return Breakdown{}, err
	}
	payout, err := subtotal.Sub(listerFee)
	if err != nil {
		return Breakdown{}, err
	}

	return Breakdown{
		Days:         days,
		DailyRate:    dailyRate,
		Subtotal:     subtotal,
		RenterFee:    renterFee,
		ListerFee:    listerFee,
		Total:        total,
		ListerPayout: payout,
	}, nil
}

// QuoteDefault applies the platform's standard commission rates.
func QuoteDefault(days int, dailyRate money.Money) (Breakdown, error) {
	return Quote(days, dailyRate, DefaultRenterFeeBps, DefaultListerFeeBps)
}

func roundHalfUpBps(amount, bps int64) int64 {
	return (amount*bps + bpsBase/2) / bpsBase
}
