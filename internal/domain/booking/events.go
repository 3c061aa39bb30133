package booking

import "time"

// base carries the participant ids every feed event exposes.
type base struct {
	BookingID string    `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	RenterID  string    `json:"renter_id"`
	OwnerID   string    `json:"owner_id"`
	At        time.Time `json:"at"`
}

func (b base) AggregateID() string   { return b.BookingID }
func (b base) OccurredAt() time.Time { return b.At }

type Requested struct {
	base
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

func (Requested) EventName() string { return "booking.requested" }

type Approved struct {
	base
}

func (Approved) EventName() string { return "booking.approved" }

type Rejected struct {
	base
}

func (Rejected) EventName() string { return "booking.rejected" }

type PaymentInitiated struct {
	base
	OrderID string `json:"order_id"`
}

func (PaymentInitiated) EventName() string { return "payment.initiated" }

type PaymentCaptured struct {
	base
	OrderID string `json:"order_id"`
	TxnID   string `json:"txn_id"`
}

func (PaymentCaptured) EventName() string { return "payment.captured" }

type Confirmed struct {
	base
	OrderID string `json:"order_id"`
	TxnID   string `json:"txn_id"`
}

func (Confirmed) EventName() string { return "booking.confirmed" }

type Cancelled struct {
	base
	Reason string `json:"reason,omitempty"`
}

func (Cancelled) EventName() string { return "booking.cancelled" }

type Completed struct {
	base
}

func (Completed) EventName() string { return "booking.completed" }
