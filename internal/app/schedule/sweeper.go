package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	bookinghandlers "github.com/dog52841/Rentify-sub001/internal/app/handlers/booking"
	"github.com/dog52841/Rentify-sub001/internal/app/handlers/support"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
)

// CompletionSweeper periodically moves confirmed bookings whose end day has
// passed to COMPLETED. Completion is time-driven, not user-driven, so it runs
// as a background loop rather than an HTTP surface.
type CompletionSweeper struct {
	Bus        commands.Bus
	UoWFactory uow.UoWFactory
	Interval   time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

func (s *CompletionSweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger().Info("completion sweeper started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger().Info("completion sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep completes every eligible booking once. Per-booking failures are
// logged and skipped; the next tick retries them.
func (s *CompletionSweeper) Sweep(ctx context.Context) {
	today := dates.FromTime(s.now())

	unit, unitCtx, done, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		s.logger().Error("completion sweep: begin unit", "error", err)
		return
	}
	ended, err := unit.Bookings().ListConfirmedEndingBefore(unitCtx, today)
	done()
	if err != nil {
		s.logger().Error("completion sweep: list bookings", "error", err)
		return
	}

	for _, bk := range ended {
		cmd := bookinghandlers.CompleteBookingCommand{
			BookingID: string(bk.ID),
			ListingID: string(bk.ListingID),
		}
		if _, err := commands.Dispatch[bookinghandlers.CompleteBookingCommand, *bookinghandlers.CompleteBookingResult](ctx, s.Bus, cmd); err != nil {
			s.logger().Error("completion sweep: complete booking", "booking_id", bk.ID, "error", err)
			continue
		}
		s.logger().Info("booking completed", "booking_id", bk.ID, "listing_id", bk.ListingID)
	}
}

func (s *CompletionSweeper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *CompletionSweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
