package db

import apperr "parkops/internal/errors"

// Validate rejects tariffs the fee calculator cannot use.
func (f *FeeStructure) Validate() error {
	const op = "validate fee structure"

	fields := []struct {
		name  string
		value int64
	}{
		{"free_minutes", int64(f.FreeMinutes)},
		{"base_fee", f.BaseFee},
		{"base_minutes", int64(f.BaseMinutes)},
		{"extra_fee", f.ExtraFee},
		{"daily_max", f.DailyMax},
		{"valet_fee", f.ValetFee},
		{"monthly_fee", f.MonthlyFee},
	}
	for _, field := range fields {
		if field.value < 0 {
			return apperr.Validation(op, "%s must not be negative (got %d)", field.name, field.value)
		}
	}
	if f.StoreID == "" {
		return apperr.Validation(op, "store_id is required")
	}
	return nil
}
