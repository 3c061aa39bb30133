package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	domainavailability "github.com/dog52841/Rentify-sub001/internal/domain/availability"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/events"
)

// ErrConcurrentUpdate reports a lost version race; the caller should reload
// and retry.
var ErrConcurrentUpdate = errors.New("memory: concurrent update")

// ListingRepository is an in-memory reference-data store.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlisting.ListingID]domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlisting.ListingID]domainlisting.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainlisting.ErrNotFound
	}
	copy := item
	return &copy, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = *listing
	return nil
}

// AvailabilityRepository keeps per-listing calendars. Reads hand out copies
// so an aborted command cannot leak half-applied mutations.
type AvailabilityRepository struct {
	mu        sync.Mutex
	calendars map[domainlisting.ListingID]calendarSnapshot
}

type calendarSnapshot struct {
	version int64
	days    []string
}

func NewAvailabilityRepository() *AvailabilityRepository {
	return &AvailabilityRepository{calendars: make(map[domainlisting.ListingID]calendarSnapshot)}
}

// Calendar retrieves a calendar copy, lazily creating an empty one.
func (r *AvailabilityRepository) Calendar(ctx context.Context, id domainlisting.ListingID) (*domainavailability.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.calendars[id]
	if !ok {
		return domainavailability.NewCalendar(id), nil
	}
	return domainavailability.Restore(id, snap.version, snap.days), nil
}

// Save persists the calendar with compare-and-set on its version.
func (r *AvailabilityRepository) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.calendars[calendar.ListingID]
	if ok && snap.version != calendar.Version {
		return ErrConcurrentUpdate
	}
	calendar.Version++
	r.calendars[calendar.ListingID] = calendarSnapshot{version: calendar.Version, days: calendar.Unavailable()}
	return nil
}

// BookingRepository stores bookings with version CAS semantics.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(item), nil
}

func (r *BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[booking.ID]
	if ok && stored.Version != booking.Version {
		return ErrConcurrentUpdate
	}
	booking.Version++
	r.items[booking.ID] = *cloneBooking(*booking)
	return nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := strings.TrimSpace(renterID)
	matches := make([]*domainbooking.Booking, 0)
	for _, item := range r.items {
		if item.RenterID == id {
			matches = append(matches, cloneBooking(item))
		}
	}
	sortNewestFirst(matches)
	return matches, nil
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID domainlisting.ListingID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, item := range r.items {
		if item.ListingID == listingID {
			matches = append(matches, cloneBooking(item))
		}
	}
	sortNewestFirst(matches)
	return matches, nil
}

func (r *BookingRepository) ListConfirmedEndingBefore(ctx context.Context, day dates.Day) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, item := range r.items {
		if item.State == domainbooking.StateConfirmed && item.Range.End.Before(day) {
			matches = append(matches, cloneBooking(item))
		}
	}
	sortNewestFirst(matches)
	return matches, nil
}

// PaymentRepository stores charge orders.
type PaymentRepository struct {
	mu    sync.RWMutex
	items map[string]domainpayment.Order
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{items: make(map[string]domainpayment.Order)}
}

func (r *PaymentRepository) ByID(ctx context.Context, id string) (*domainpayment.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainpayment.ErrNotFound
	}
	copy := item
	return &copy, nil
}

func (r *PaymentRepository) Save(ctx context.Context, order *domainpayment.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[order.ID]
	if ok && stored.Version != order.Version {
		return ErrConcurrentUpdate
	}
	order.Version++
	r.items[order.ID] = *order
	return nil
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, id domainbooking.BookingID) ([]*domainpayment.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainpayment.Order, 0)
	for _, item := range r.items {
		if item.BookingID == id {
			copy := item
			matches = append(matches, &copy)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func cloneBooking(b domainbooking.Booking) *domainbooking.Booking {
	b.EventRecorder = events.EventRecorder{}
	return &b
}

func sortNewestFirst(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
