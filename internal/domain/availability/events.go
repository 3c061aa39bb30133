package availability

import "time"

type DaysBlocked struct {
	ListingID string    `json:"listing_id"`
	Start     string    `json:"start_date"`
	End       string    `json:"end_date"`
	At        time.Time `json:"at"`
}

func (e DaysBlocked) EventName() string     { return "calendar.blocked" }
func (e DaysBlocked) AggregateID() string   { return e.ListingID }
func (e DaysBlocked) OccurredAt() time.Time { return e.At }

type DaysReleased struct {
	ListingID string    `json:"listing_id"`
	Start     string    `json:"start_date"`
	End       string    `json:"end_date"`
	At        time.Time `json:"at"`
}

func (e DaysReleased) EventName() string     { return "calendar.released" }
func (e DaysReleased) AggregateID() string   { return e.ListingID }
func (e DaysReleased) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	ListingID string    `json:"listing_id"`
	Start     string    `json:"start_date"`
	End       string    `json:"end_date"`
	At        time.Time `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return e.ListingID }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }
