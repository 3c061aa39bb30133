package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
	appoutbox "github.com/dog52841/Rentify-sub001/internal/app/outbox"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
	"github.com/dog52841/Rentify-sub001/internal/infra/storage/memory"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

const (
	testListing = "lst-1"
	testOwner   = "owner-1"
	testRenter  = "renter-1"
)

type fakeOutbox struct {
	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func (f *fakeOutbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeOutbox) Flush(ctx context.Context) error { return nil }

func (f *fakeOutbox) names() []string {
	out := make([]string, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r.Name)
	}
	return out
}

type fixture struct {
	factory memory.Factory
	outbox  *fakeOutbox
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := memory.NewFactory()
	lst, err := domainlisting.New(testListing, testOwner, "Canyon road bike", money.Must(5000, "USD"))
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if err := factory.ListingsRepo.Save(context.Background(), lst); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return &fixture{
		factory: factory,
		outbox:  &fakeOutbox{},
		ctx:     uow.ContextWithUnitOfWork(context.Background(), unit),
	}
}

func (f *fixture) request(t *testing.T, id, renter, start, end string) (*RequestBookingResult, error) {
	t.Helper()
	h := &RequestBookingHandler{Outbox: f.outbox, Now: func() time.Time { return testNow }}
	return h.Handle(f.ctx, RequestBookingCommand{
		CommandID: id,
		ListingID: testListing,
		RenterID:  renter,
		StartDate: start,
		EndDate:   end,
	})
}

func (f *fixture) decide(t *testing.T, bookingID, decision string) (*DecideBookingResult, error) {
	t.Helper()
	h := &DecideBookingHandler{Outbox: f.outbox, Now: func() time.Time { return testNow }}
	return h.Handle(f.ctx, DecideBookingCommand{
		BookingID: bookingID,
		ActorID:   testOwner,
		Decision:  decision,
		ListingID: testListing,
	})
}

func (f *fixture) booking(t *testing.T, id string) *domainbooking.Booking {
	t.Helper()
	bk, err := f.factory.BookingRepo.ByID(context.Background(), domainbooking.BookingID(id))
	if err != nil {
		t.Fatalf("load booking %s: %v", id, err)
	}
	return bk
}

func (f *fixture) unavailable(t *testing.T) []string {
	t.Helper()
	cal, err := f.factory.AvailabilityRepo.Calendar(context.Background(), testListing)
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	return cal.Unavailable()
}

func TestRequestBooking(t *testing.T) {
	f := newFixture(t)

	res, err := f.request(t, "b1", testRenter, "2026-09-10", "2026-09-12")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Status != string(domainbooking.StateRequested) {
		t.Fatalf("status = %s, want REQUESTED", res.Status)
	}
	// 3 days at 5000 with default 7%/3% commission
	if res.TotalCents != 16050 || res.Currency != "USD" {
		t.Fatalf("total = %d %s, want 16050 USD", res.TotalCents, res.Currency)
	}
	// a pending request holds no calendar days
	if days := f.unavailable(t); len(days) != 0 {
		t.Fatalf("calendar should be empty, got %v", days)
	}
	if names := f.outbox.names(); len(names) != 1 || names[0] != "booking.requested" {
		t.Fatalf("outbox = %v", names)
	}
}

func TestRequestBookingUnknownListing(t *testing.T) {
	f := newFixture(t)
	h := &RequestBookingHandler{Outbox: f.outbox, Now: func() time.Time { return testNow }}
	_, err := h.Handle(f.ctx, RequestBookingCommand{
		CommandID: "b1",
		ListingID: "nope",
		RenterID:  testRenter,
		StartDate: "2026-09-10",
		EndDate:   "2026-09-12",
	})
	if faults.KindOf(err) != faults.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRequestBookingRejectsBlockedDates(t *testing.T) {
	f := newFixture(t)
	if _, err := f.request(t, "b1", testRenter, "2026-09-10", "2026-09-12"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.decide(t, "b1", DecisionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := f.request(t, "b2", "renter-2", "2026-09-11", "2026-09-14")
	var fe *faults.Error
	if !errors.As(err, &fe) || fe.Kind != faults.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if fe.ConflictStart != "2026-09-11" || fe.ConflictEnd != "2026-09-12" {
		t.Fatalf("contested range = %s..%s", fe.ConflictStart, fe.ConflictEnd)
	}
}

func TestFirstApprovedWins(t *testing.T) {
	f := newFixture(t)
	if _, err := f.request(t, "b1", testRenter, "2026-09-10", "2026-09-12"); err != nil {
		t.Fatalf("request b1: %v", err)
	}
	if _, err := f.request(t, "b2", "renter-2", "2026-09-11", "2026-09-14"); err != nil {
		t.Fatalf("request b2: %v", err)
	}

	res, err := f.decide(t, "b1", DecisionApprove)
	if err != nil {
		t.Fatalf("approve b1: %v", err)
	}
	if res.Status != string(domainbooking.StateApproved) {
		t.Fatalf("b1 status = %s", res.Status)
	}

	_, err = f.decide(t, "b2", DecisionApprove)
	if faults.KindOf(err) != faults.KindConflict {
		t.Fatalf("expected conflict for the losing approval, got %v", err)
	}
	// the failed approval must not leak state
	if st := f.booking(t, "b2").State; st != domainbooking.StateRequested {
		t.Fatalf("b2 state = %s, want REQUESTED", st)
	}
	if days := f.unavailable(t); len(days) != 3 {
		t.Fatalf("calendar days = %v, want the 3 days of b1", days)
	}
}

func TestConcurrentApprovalsSingleWinner(t *testing.T) {
	f := newFixture(t)
	if _, err := f.request(t, "b1", testRenter, "2026-09-10", "2026-09-12"); err != nil {
		t.Fatalf("request b1: %v", err)
	}
	if _, err := f.request(t, "b2", "renter-2", "2026-09-11", "2026-09-14"); err != nil {
		t.Fatalf("request b2: %v", err)
	}

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, DecideBookingCommand{}.Key(), &DecideBookingHandler{
		Outbox: f.outbox,
		Now:    func() time.Time { return testNow },
	})
	chained := middleware.ChainCommands(bus,
		middleware.Serialize(middleware.NewKeyedMutex()),
		middleware.Transaction(f.factory, nil),
	)

	ids := []string{"b1", "b2"}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = commands.Dispatch[DecideBookingCommand, *DecideBookingResult](
				context.Background(), chained, DecideBookingCommand{
					BookingID: id,
					ActorID:   testOwner,
					Decision:  DecisionApprove,
					ListingID: testListing,
				})
		}(i, id)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			if winner >= 0 {
				t.Fatalf("both approvals succeeded over contested days")
			}
			winner = i
			continue
		}
		if faults.KindOf(err) != faults.KindConflict {
			t.Fatalf("loser %s: expected conflict, got %v", ids[i], err)
		}
	}
	if winner < 0 {
		t.Fatalf("no approval succeeded: %v", errs)
	}
	loser := ids[1-winner]
	if st := f.booking(t, loser).State; st != domainbooking.StateRequested {
		t.Fatalf("loser %s state = %s, want REQUESTED", loser, st)
	}
	wantDays := f.booking(t, ids[winner]).Range.Days()
	if days := f.unavailable(t); len(days) != wantDays {
		t.Fatalf("calendar days = %v, want the %d days of %s", days, wantDays, ids[winner])
	}
}

func TestRejectLeavesCalendarUntouched(t *testing.T) {
	f := newFixture(t)
	if _, err := f.request(t, "b1", testRenter, "2026-09-10", "2026-09-12"); err != nil {
		t.Fatalf("request: %v", err)
	}
	res, err := f.decide(t, "b1", DecisionReject)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.Status != string(domainbooking.StateRejected) {
		t.Fatalf("status = %s", res.Status)
	}
	if days := f.unavailable(t); len(days) != 0 {
		t.Fatalf("calendar should stay empty, got %v", days)
	}
}

func TestCancelReleasesDays(t *testing.T) {
	f := newFixture(t)
	if _, err := f.request(t, "b1", testRenter, "2026-09-10", "2026-09-12"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.decide(t, "b1", DecisionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if days := f.unavailable(t); len(days) != 3 {
		t.Fatalf("expected 3 held days, got %v", days)
	}

	h := &CancelBookingHandler{Outbox: f.outbox, Now: func() time.Time { return testNow }}
	res, err := h.Handle(f.ctx, CancelBookingCommand{
		BookingID: "b1",
		ActorID:   testRenter,
		Reason:    "plans changed",
		ListingID: testListing,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Status != string(domainbooking.StateCancelled) {
		t.Fatalf("status = %s", res.Status)
	}
	if days := f.unavailable(t); len(days) != 0 {
		t.Fatalf("days not released: %v", days)
	}
}

func TestCompleteReleasesDays(t *testing.T) {
	f := newFixture(t)
	if _, err := f.request(t, "b1", testRenter, "2026-09-10", "2026-09-12"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.decide(t, "b1", DecisionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// drive the booking to CONFIRMED directly; the payment handlers carry
	// their own coverage
	bk := f.booking(t, "b1")
	if err := bk.InitiatePayment(testRenter, "ord-1", testNow); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if err := bk.Confirm("ord-1", "txn-1", testNow); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.factory.BookingRepo.Save(context.Background(), bk); err != nil {
		t.Fatalf("save: %v", err)
	}

	after := time.Date(2026, 9, 13, 8, 0, 0, 0, time.UTC)
	h := &CompleteBookingHandler{Outbox: f.outbox, Now: func() time.Time { return after }}
	res, err := h.Handle(f.ctx, CompleteBookingCommand{BookingID: "b1", ListingID: testListing})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Status != string(domainbooking.StateCompleted) {
		t.Fatalf("status = %s", res.Status)
	}
	if days := f.unavailable(t); len(days) != 0 {
		t.Fatalf("days not released: %v", days)
	}

	// completing again is refused, and the sweeper treats that as done
	if _, err := h.Handle(f.ctx, CompleteBookingCommand{BookingID: "b1", ListingID: testListing}); err == nil {
		t.Fatal("second complete should fail")
	}
}
