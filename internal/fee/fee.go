// Package fee computes parking charges from a visit place's tariff.
//
// Every caller that needs "what does this ticket cost at time t" goes
// through Compute or Calculate; nothing else in the module prices a stay.
package fee

import (
	"time"

	"parkops/internal/db"
)

// ExtraBlockMinutes is the granularity of the extra charge beyond the
// base block. Partial blocks are billed in full.
const ExtraBlockMinutes = 10

type Breakdown struct {
	ElapsedMinutes    int64 `json:"elapsed_minutes"`
	ChargeableMinutes int64 `json:"chargeable_minutes"`
	ExtraUnits        int64 `json:"extra_units"`
	BaseAmount        int64 `json:"base_amount"`
	Capped            bool  `json:"capped"`
	ValetSurcharge    int64 `json:"valet_surcharge"`
	Total             int64 `json:"total"`
}

// Compute returns the amount owed for a stay from entryAt to now.
func Compute(entryAt, now time.Time, s db.FeeStructure, parkingType db.ParkingType, isMonthly bool) int64 {
	return Calculate(entryAt, now, s, parkingType, isMonthly).Total
}

// Calculate is Compute with the intermediate figures kept for display.
func Calculate(entryAt, now time.Time, s db.FeeStructure, parkingType db.ParkingType, isMonthly bool) Breakdown {
	var b Breakdown
	if isMonthly {
		return b
	}

	elapsed := int64(now.Sub(entryAt) / time.Minute)
	if elapsed <= 0 {
		return b
	}
	b.ElapsedMinutes = elapsed

	free := int64(s.FreeMinutes)
	if elapsed > free {
		b.ChargeableMinutes = elapsed - free
		baseMinutes := int64(s.BaseMinutes)
		if b.ChargeableMinutes <= baseMinutes {
			b.BaseAmount = s.BaseFee
		} else {
			extra := b.ChargeableMinutes - baseMinutes
			b.ExtraUnits = (extra + ExtraBlockMinutes - 1) / ExtraBlockMinutes
			b.BaseAmount = s.BaseFee + b.ExtraUnits*s.ExtraFee
		}
	}

	if s.DailyMax > 0 && b.BaseAmount > s.DailyMax {
		b.BaseAmount = s.DailyMax
		b.Capped = true
	}

	b.Total = b.BaseAmount
	if parkingType == db.ParkingValet {
		b.ValetSurcharge = s.ValetFee
		b.Total += s.ValetFee
	}
	return b
}

// Additional is the balance still due after a pre-payment, never negative.
func Additional(total, paid int64) int64 {
	if total > paid {
		return total - paid
	}
	return 0
}
