package api

import (
	"parkops/internal/db"
	"parkops/internal/service"
)

// Check-in
type CheckInRequest struct {
	StoreID         string  `json:"store_id"`
	VisitPlaceID    *string `json:"visit_place_id"`
	PlateNumber     string  `json:"plate_number"`
	ParkingType     string  `json:"parking_type"`
	IsMonthly       bool    `json:"is_monthly"`
	ParkingLocation string  `json:"parking_location"`
}

// Transitions
type TransitionRequest struct {
	Event         string `json:"event"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PlateNumber   string `json:"plate_number"`
}

func (r TransitionRequest) Payload() service.Payload {
	return service.Payload{
		Amount:        r.Amount,
		PaymentMethod: r.PaymentMethod,
		PlateNumber:   r.PlateNumber,
	}
}

// Fee structures
type FeeStructureRequest struct {
	StoreID     string `json:"store_id"`
	Name        string `json:"name"`
	IsDefault   bool   `json:"is_default"`
	FreeMinutes int    `json:"free_minutes"`
	BaseFee     int64  `json:"base_fee"`
	BaseMinutes int    `json:"base_minutes"`
	ExtraFee    int64  `json:"extra_fee"`
	DailyMax    int64  `json:"daily_max"`
	ValetFee    int64  `json:"valet_fee"`
	MonthlyFee  int64  `json:"monthly_fee"`
}

func (r FeeStructureRequest) FeeStructure(id string) *db.FeeStructure {
	return &db.FeeStructure{
		ID:          id,
		StoreID:     r.StoreID,
		Name:        r.Name,
		IsDefault:   r.IsDefault,
		FreeMinutes: r.FreeMinutes,
		BaseFee:     r.BaseFee,
		BaseMinutes: r.BaseMinutes,
		ExtraFee:    r.ExtraFee,
		DailyMax:    r.DailyMax,
		ValetFee:    r.ValetFee,
		MonthlyFee:  r.MonthlyFee,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
