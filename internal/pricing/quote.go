// Package pricing computes price quotes for vehicle rentals.
//
// This is the single place multiplier math lives: the quote endpoint, the
// hold snapshot and the late-fee calculation all go through this package, so
// a displayed quote can never drift from the settled amount.
package pricing

import (
	"errors"
	"math"
	"time"
)

const (
	PeakMultiplier    = 1.5
	WeekendMultiplier = 1.2
	InsuranceRate     = 0.10
	TaxRate           = 0.10
	DepositRate       = 0.20
)

var ErrInvalidInterval = errors.New("end time must be after start time")

// RateCard is per-vehicle reference pricing, in the currency's minor unit.
type RateCard struct {
	HourlyRateCents int64
	DailyRateCents  int64
	Currency        string
}

// Details explains how the base price was accumulated.
type Details struct {
	Hours         int `json:"hours"`
	Days          int `json:"days"`
	PeakHours     int `json:"peak_hours"`
	WeekendBlocks int `json:"weekend_blocks"`
}

// Breakdown is a value object; it is never mutated after computation.
type Breakdown struct {
	BasePriceCents      int64   `json:"base_price_cents"`
	InsurancePriceCents int64   `json:"insurance_price_cents"`
	TaxesCents          int64   `json:"taxes_cents"`
	TotalPriceCents     int64   `json:"total_price_cents"`
	DepositCents        int64   `json:"deposit_cents"`
	Currency            string  `json:"currency"`
	Details             Details `json:"details"`
}

// Quote computes a price breakdown for renting at the given rate card over
// [startAt, endAt). Intervals of 24h or more are billed per started 24h block
// at the daily rate, with a weekend multiplier on blocks starting on a
// Saturday or Sunday. Shorter intervals are billed per started hour at the
// hourly rate, with a peak multiplier on hours starting within 07:00-09:00 or
// 17:00-19:00 and a weekend multiplier on weekend hours, applied
// multiplicatively.
//
// Monetary fields are rounded to the minor unit once per derived field, at
// the end; per-hour and per-day contributions accumulate unrounded. Identical
// inputs always produce an identical breakdown.
func Quote(rc RateCard, startAt, endAt time.Time, insurancePremium bool) (Breakdown, error) {
	duration := endAt.Sub(startAt)
	if duration <= 0 {
		return Breakdown{}, ErrInvalidInterval
	}

	var base float64
	var details Details

	if duration >= 24*time.Hour {
		days := int(math.Ceil(duration.Hours() / 24))
		for i := 0; i < days; i++ {
			blockStart := startAt.Add(time.Duration(i) * 24 * time.Hour)
			rate := float64(rc.DailyRateCents)
			if isWeekend(blockStart) {
				rate *= WeekendMultiplier
				details.WeekendBlocks++
			}
			base += rate
		}
		details.Days = days
	} else {
		hours := int(math.Ceil(duration.Hours()))
		for i := 0; i < hours; i++ {
			blockStart := startAt.Add(time.Duration(i) * time.Hour)
			rate := float64(rc.HourlyRateCents)
			if isPeakHour(blockStart) {
				rate *= PeakMultiplier
				details.PeakHours++
			}
			if isWeekend(blockStart) {
				rate *= WeekendMultiplier
				details.WeekendBlocks++
			}
			base += rate
		}
		details.Hours = hours
	}

	var insurance float64
	if insurancePremium {
		insurance = base * InsuranceRate
	}
	taxes := (base + insurance) * TaxRate

	baseCents := roundCents(base)
	insuranceCents := roundCents(insurance)
	taxesCents := roundCents(taxes)
	totalCents := baseCents + insuranceCents + taxesCents
	depositCents := roundCents(float64(totalCents) * DepositRate)

	return Breakdown{
		BasePriceCents:      baseCents,
		InsurancePriceCents: insuranceCents,
		TaxesCents:          taxesCents,
		TotalPriceCents:     totalCents,
		DepositCents:        depositCents,
		Currency:            rc.Currency,
		Details:             details,
	}, nil
}

// LateFee computes the overdue charge for a vehicle returned past its
// expected return time, against the rates frozen at booking time. Overdue
// periods under 24h bill per started hour; longer ones per started day.
// A zero or negative overdue duration costs nothing.
func LateFee(rc RateCard, overdue time.Duration) int64 {
	if overdue <= 0 {
		return 0
	}
	if overdue < 24*time.Hour {
		hours := int64(math.Ceil(overdue.Hours()))
		return hours * rc.HourlyRateCents
	}
	days := int64(math.Ceil(overdue.Hours() / 24))
	return days * rc.DailyRateCents
}

// isPeakHour reports whether the hour block starting at t falls in a peak
// window (07:00-09:00 or 17:00-19:00, local time).
func isPeakHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 7 && h < 9) || (h >= 17 && h < 19)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
