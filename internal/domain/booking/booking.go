package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/pricing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/events"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

var ErrNotFound = errors.New("booking: not found")

type BookingID string

type State string

const (
	StateRequested      State = "REQUESTED"
	StateApproved       State = "APPROVED"
	StateRejected       State = "REJECTED"
	StatePaymentPending State = "PAYMENT_PENDING"
	StateConfirmed      State = "CONFIRMED"
	StateCancelled      State = "CANCELLED"
	StateCompleted      State = "COMPLETED"
)

// Terminal states are archived for audit, never deleted.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateCancelled, StateCompleted:
		return true
	}
	return false
}

// Booking is the rental request aggregate. Its price is computed once at
// request time and never mutated; status moves only through the transition
// methods below, each recording exactly one lifecycle event.
type Booking struct {
	ID        BookingID
	ListingID listing.ListingID
	RenterID  string
	OwnerID   string
	Range     dates.Range
	Price     pricing.Breakdown
	State     State
	OrderID   string
	TxnID     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByRenter(ctx context.Context, renterID string) ([]*Booking, error)
	ListByListing(ctx context.Context, listingID listing.ListingID) ([]*Booking, error)
	ListConfirmedEndingBefore(ctx context.Context, day dates.Day) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	ListingID listing.ListingID
	RenterID  string
	OwnerID   string
	Range     dates.Range
	Price     pricing.Breakdown
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, faults.Validationf("booking: id is required")
	}
	if strings.TrimSpace(params.RenterID) == "" {
		return nil, faults.Validationf("booking: renter id is required")
	}
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, faults.Validationf("booking: owner id is required")
	}
	if params.RenterID == params.OwnerID {
		return nil, faults.Validationf("booking: renter cannot book their own listing")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, faults.Validationf("booking: %v", err)
	}
	if params.Range.Start.Before(dates.FromTime(params.CreatedAt)) {
		return nil, faults.Validationf("booking: start day is in the past")
	}
	if params.Price.Total.Amount <= 0 {
		return nil, faults.Validationf("booking: total must be positive")
	}

	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		ListingID: params.ListingID,
		RenterID:  params.RenterID,
		OwnerID:   params.OwnerID,
		Range:     params.Range,
		Price:     params.Price,
		State:     StateRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(Requested{base: b.eventBase(now), TotalCents: b.Price.Total.Amount, Currency: b.Price.Total.Currency})
	return b, nil
}

// Approve moves Requested -> Approved. The caller must have reserved the
// calendar first; a reservation conflict leaves the booking in Requested.
func (b *Booking) Approve(actorID string, now time.Time) error {
	if !b.ownedBy(actorID) {
		return faults.Authorizationf("booking: only the listing owner may approve")
	}
	if b.State != StateRequested {
		return b.invalidTransition("approve")
	}
	b.setState(StateApproved, now)
	b.Record(Approved{base: b.eventBase(b.UpdatedAt)})
	return nil
}

// Reject moves Requested -> Rejected and must leave the calendar untouched.
func (b *Booking) Reject(actorID string, now time.Time) error {
	if !b.ownedBy(actorID) {
		return faults.Authorizationf("booking: only the listing owner may reject")
	}
	if b.State != StateRequested {
		return b.invalidTransition("reject")
	}
	b.setState(StateRejected, now)
	b.Record(Rejected{base: b.eventBase(b.UpdatedAt)})
	return nil
}

// InitiatePayment moves Approved -> PaymentPending, attaching the freshly
// created payment order. A failed capture keeps the booking here; each retry
// attaches a new order id.
func (b *Booking) InitiatePayment(actorID, orderID string, now time.Time) error {
	if actorID != b.RenterID {
		return faults.Authorizationf("booking: only the renter may pay")
	}
	if orderID == "" {
		return faults.Validationf("booking: order id is required")
	}
	if b.State != StateApproved && b.State != StatePaymentPending {
		return b.invalidTransition("initiate payment")
	}
	b.OrderID = orderID
	if b.State == StateApproved {
		b.setState(StatePaymentPending, now)
	} else {
		b.UpdatedAt = now.UTC()
	}
	b.Record(PaymentInitiated{base: b.eventBase(b.UpdatedAt), OrderID: orderID})
	return nil
}

// Confirm moves PaymentPending -> Confirmed after exactly one successful
// capture, recording both the capture and the confirmation.
func (b *Booking) Confirm(orderID, txnID string, now time.Time) error {
	if b.State != StatePaymentPending {
		return b.invalidTransition("confirm")
	}
	if txnID == "" {
		return faults.Validationf("booking: transaction id is required")
	}
	b.OrderID = orderID
	b.TxnID = txnID
	b.setState(StateConfirmed, now)
	b.Record(PaymentCaptured{base: b.eventBase(b.UpdatedAt), OrderID: orderID, TxnID: txnID})
	b.Record(Confirmed{base: b.eventBase(b.UpdatedAt), OrderID: orderID, TxnID: txnID})
	return nil
}

// Cancel is allowed to either party from Approved, PaymentPending or
// Confirmed; the caller releases the reserved calendar days alongside.
func (b *Booking) Cancel(actorID, reason string, now time.Time) error {
	if actorID != b.RenterID && !b.ownedBy(actorID) {
		return faults.Authorizationf("booking: only the renter or the owner may cancel")
	}
	switch b.State {
	case StateApproved, StatePaymentPending, StateConfirmed:
	default:
		return b.invalidTransition("cancel")
	}
	b.setState(StateCancelled, now)
	b.Record(Cancelled{base: b.eventBase(b.UpdatedAt), Reason: reason})
	return nil
}

// Complete moves Confirmed -> Completed once the end day has passed.
func (b *Booking) Complete(today dates.Day, now time.Time) error {
	if b.State != StateConfirmed {
		return b.invalidTransition("complete")
	}
	if !b.Range.End.Before(today) {
		return faults.Validationf("booking: rental has not ended yet")
	}
	b.setState(StateCompleted, now)
	b.Record(Completed{base: b.eventBase(b.UpdatedAt)})
	return nil
}

// HoldsCalendar reports whether the booking currently owns its reserved days.
func (b *Booking) HoldsCalendar() bool {
	switch b.State {
	case StateApproved, StatePaymentPending, StateConfirmed:
		return true
	}
	return false
}

func (b *Booking) ownedBy(actorID string) bool {
	return actorID != "" && actorID == b.OwnerID
}

func (b *Booking) setState(s State, now time.Time) {
	b.State = s
	b.UpdatedAt = now.UTC()
}

func (b *Booking) invalidTransition(action string) error {
	return faults.Validationf("booking: cannot %s a %s booking", action, strings.ToLower(string(b.State)))
}

func (b *Booking) eventBase(at time.Time) base {
	return base{
		BookingID: string(b.ID),
		ListingID: string(b.ListingID),
		RenterID:  b.RenterID,
		OwnerID:   b.OwnerID,
		At:        at,
	}
}
