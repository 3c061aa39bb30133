package dto

import (
	"time"

	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PriceDTO struct {
	Days         int      `json:"days"`
	Subtotal     MoneyDTO `json:"subtotal"`
	RenterFee    MoneyDTO `json:"renter_fee"`
	ListerFee    MoneyDTO `json:"lister_fee"`
	Total        MoneyDTO `json:"total"`
	ListerPayout MoneyDTO `json:"lister_payout"`
}

type BookingView struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	RenterID  string    `json:"renter_id"`
	OwnerID   string    `json:"owner_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
	Price     PriceDTO  `json:"price"`
	OrderID   string    `json:"order_id,omitempty"`
	TxnID     string    `json:"transaction_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapBooking(b *domainbooking.Booking) BookingView {
	return BookingView{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		RenterID:  b.RenterID,
		OwnerID:   b.OwnerID,
		StartDate: b.Range.StartKey(),
		EndDate:   b.Range.EndKey(),
		Status:    string(b.State),
		Price: PriceDTO{
			Days:         b.Price.Days,
			Subtotal:     MapMoney(b.Price.Subtotal),
			RenterFee:    MapMoney(b.Price.RenterFee),
			ListerFee:    MapMoney(b.Price.ListerFee),
			Total:        MapMoney(b.Price.Total),
			ListerPayout: MapMoney(b.Price.ListerPayout),
		},
		OrderID:   b.OrderID,
		TxnID:     b.TxnID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
