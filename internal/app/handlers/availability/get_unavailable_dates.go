package availability

import (
	"context"
	"errors"

	"github.com/dog52841/Rentify-sub001/internal/app/dto"
	"github.com/dog52841/Rentify-sub001/internal/app/handlers/support"
	"github.com/dog52841/Rentify-sub001/internal/app/queries"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

const getUnavailableDatesKey = "availability.unavailable"

type GetUnavailableDatesQuery struct {
	ListingID string
}

func (q GetUnavailableDatesQuery) Key() string { return getUnavailableDatesKey }

type GetUnavailableDatesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetUnavailableDatesHandler) Handle(ctx context.Context, q GetUnavailableDatesQuery) (*dto.Calendar, error) {
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer done()

	if _, err := unit.Listings().ByID(ctx, domainlisting.ListingID(q.ListingID)); err != nil {
		if errors.Is(err, domainlisting.ErrNotFound) {
			return nil, faults.NotFoundf("availability: listing %s not found", q.ListingID)
		}
		return nil, err
	}
	calendar, err := unit.Availability().Calendar(ctx, domainlisting.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	view := dto.MapCalendar(calendar)
	return &view, nil
}

var _ queries.Handler[GetUnavailableDatesQuery, *dto.Calendar] = (*GetUnavailableDatesHandler)(nil)
