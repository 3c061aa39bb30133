package dto

import "github.com/dog52841/Rentify-sub001/internal/domain/availability"

type Calendar struct {
	ListingID string   `json:"listing_id"`
	Dates     []string `json:"dates"`
}

func MapCalendar(cal *availability.Calendar) Calendar {
	if cal == nil {
		return Calendar{}
	}
	return Calendar{ListingID: string(cal.ListingID), Dates: cal.Unavailable()}
}
