package entities

import (
	"time"

	"parkops/internal/fee"
)

type FeeEstimateResponse struct {
	TicketID      string        `json:"ticket_id"`
	Status        string        `json:"status"`
	At            time.Time     `json:"at"`
	Breakdown     fee.Breakdown `json:"breakdown"`
	PaidAmount    int64         `json:"paid_amount"`
	AdditionalDue int64         `json:"additional_due"`
}

type FeePreviewResponse struct {
	VisitPlaceID string        `json:"visit_place_id"`
	ParkingType  string        `json:"parking_type"`
	Minutes      int64         `json:"minutes"`
	Breakdown    fee.Breakdown `json:"breakdown"`
}

type FeeStructureResponse struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	StoreID     string    `json:"store_id"`
	Name        string    `json:"name"`
	IsDefault   bool      `json:"is_default"`
	FreeMinutes int       `json:"free_minutes"`
	BaseFee     int64     `json:"base_fee"`
	BaseMinutes int       `json:"base_minutes"`
	ExtraFee    int64     `json:"extra_fee"`
	DailyMax    int64     `json:"daily_max"`
	ValetFee    int64     `json:"valet_fee"`
	MonthlyFee  int64     `json:"monthly_fee"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ScanResponse struct {
	Scanned   int      `json:"scanned"`
	Flagged   int      `json:"flagged"`
	FailedIDs []string `json:"failed_ids"`
}
