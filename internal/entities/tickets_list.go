package entities

type TicketsList struct {
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	Tickets []TicketResponse `json:"tickets"`
}
