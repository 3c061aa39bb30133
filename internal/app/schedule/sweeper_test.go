package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	bookinghandlers "github.com/dog52841/Rentify-sub001/internal/app/handlers/booking"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	"github.com/dog52841/Rentify-sub001/internal/domain/pricing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
	"github.com/dog52841/Rentify-sub001/internal/infra/storage/memory"
)

type recordingBus struct {
	dispatched []commands.Command
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.dispatched = append(b.dispatched, cmd)
	return &bookinghandlers.CompleteBookingResult{}, nil
}

func confirmedBooking(t *testing.T, id, start, end string, now time.Time) *domainbooking.Booking {
	t.Helper()
	r, err := dates.ParseRange(start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	price, err := pricing.QuoteDefault(r.Days(), money.Must(5000, "USD"))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	bk, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		ListingID: "lst-1",
		RenterID:  "renter-1",
		OwnerID:   "owner-1",
		Range:     r,
		Price:     price,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if err := bk.Approve("owner-1", now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := bk.InitiatePayment("renter-1", "ord-"+id, now); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if err := bk.Confirm("ord-"+id, "txn-"+id, now); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return bk
}

func TestSweepCompletesOnlyEndedBookings(t *testing.T) {
	created := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	factory := memory.NewFactory()
	ctx := context.Background()

	ended := confirmedBooking(t, "b-ended", "2026-09-02", "2026-09-04", created)
	ongoing := confirmedBooking(t, "b-ongoing", "2026-09-02", "2026-09-20", created)
	if err := factory.BookingRepo.Save(ctx, ended); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := factory.BookingRepo.Save(ctx, ongoing); err != nil {
		t.Fatalf("save: %v", err)
	}

	bus := &recordingBus{}
	sweeper := &CompletionSweeper{
		Bus:        bus,
		UoWFactory: factory,
		Now:        func() time.Time { return time.Date(2026, 9, 5, 3, 0, 0, 0, time.UTC) },
	}
	sweeper.Sweep(ctx)

	if len(bus.dispatched) != 1 {
		t.Fatalf("dispatched = %d commands, want 1", len(bus.dispatched))
	}
	cmd, ok := bus.dispatched[0].(bookinghandlers.CompleteBookingCommand)
	if !ok || cmd.BookingID != "b-ended" {
		t.Fatalf("dispatched = %+v", bus.dispatched[0])
	}
}

func TestSweepWithNothingDue(t *testing.T) {
	factory := memory.NewFactory()
	bus := &recordingBus{}
	sweeper := &CompletionSweeper{
		Bus:        bus,
		UoWFactory: factory,
		Now:        func() time.Time { return time.Date(2026, 9, 5, 3, 0, 0, 0, time.UTC) },
	}
	sweeper.Sweep(context.Background())
	if len(bus.dispatched) != 0 {
		t.Fatalf("dispatched = %v", bus.dispatched)
	}
}
