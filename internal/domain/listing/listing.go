package listing

import (
	"context"
	"errors"
	"strings"

	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

var (
	ErrNotFound      = errors.New("listing: not found")
	ErrTitleRequired = errors.New("listing: title is required")
	ErrOwnerRequired = errors.New("listing: owner is required")
	ErrDailyRate     = errors.New("listing: daily rate must be positive")
)

type ListingID string
type OwnerID string

// Listing is read-only reference data for the booking core; the catalog that
// manages it lives outside this service.
type Listing struct {
	ID        ListingID
	Owner     OwnerID
	Title     string
	DailyRate money.Money
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

func New(id ListingID, owner OwnerID, title string, dailyRate money.Money) (*Listing, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, errors.New("listing: id is required")
	}
	if strings.TrimSpace(string(owner)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	if dailyRate.Amount <= 0 || dailyRate.Currency == "" {
		return nil, ErrDailyRate
	}
	return &Listing{ID: id, Owner: owner, Title: strings.TrimSpace(title), DailyRate: dailyRate}, nil
}

// OwnedBy reports whether the given actor owns the listing.
func (l *Listing) OwnedBy(actor string) bool {
	return string(l.Owner) == actor && actor != ""
}
