package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
	appoutbox "github.com/dog52841/Rentify-sub001/internal/app/outbox"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
	"github.com/dog52841/Rentify-sub001/internal/domain/pricing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
	"github.com/dog52841/Rentify-sub001/internal/infra/payments"
	"github.com/dog52841/Rentify-sub001/internal/infra/storage/memory"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

const (
	testOwner  = "owner-1"
	testRenter = "renter-1"
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

type fixture struct {
	factory  memory.Factory
	provider *payments.MemoryProvider
	outbox   *fakeOutbox
	locks    *middleware.KeyedMutex
	ctx      context.Context
	total    money.Money
}

// newFixture seeds an approved booking awaiting payment.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := memory.NewFactory()

	r, err := dates.ParseRange("2026-09-10", "2026-09-12")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	price, err := pricing.QuoteDefault(r.Days(), money.Must(5000, "USD"))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	bk, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID("b1"),
		ListingID: domainlisting.ListingID("lst-1"),
		RenterID:  testRenter,
		OwnerID:   testOwner,
		Range:     r,
		Price:     price,
		CreatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if err := bk.Approve(testOwner, testNow); err != nil {
		t.Fatalf("approve: %v", err)
	}
	bk.ClearEvents()
	if err := factory.BookingRepo.Save(context.Background(), bk); err != nil {
		t.Fatalf("save booking: %v", err)
	}

	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return &fixture{
		factory:  factory,
		provider: payments.NewMemoryProvider(),
		outbox:   &fakeOutbox{},
		locks:    middleware.NewKeyedMutex(),
		ctx:      uow.ContextWithUnitOfWork(context.Background(), unit),
		total:    price.Total,
	}
}

func (f *fixture) initiate(t *testing.T, orderID string) (*InitiatePaymentResult, error) {
	t.Helper()
	h := &InitiatePaymentHandler{Provider: f.provider, Outbox: f.outbox, Now: func() time.Time { return testNow }}
	return h.Handle(f.ctx, InitiatePaymentCommand{
		CommandID:   orderID,
		BookingID:   "b1",
		ActorID:     testRenter,
		AmountCents: f.total.Amount,
		Currency:    f.total.Currency,
	})
}

func (f *fixture) capture(t *testing.T, orderID string) (*CaptureOrderResult, error) {
	t.Helper()
	h := &CaptureOrderHandler{Provider: f.provider, Outbox: f.outbox, Locks: f.locks, Now: func() time.Time { return testNow }}
	return h.Handle(f.ctx, CaptureOrderCommand{OrderID: orderID, ActorID: testRenter})
}

func (f *fixture) booking(t *testing.T) *domainbooking.Booking {
	t.Helper()
	bk, err := f.factory.BookingRepo.ByID(context.Background(), domainbooking.BookingID("b1"))
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	return bk
}

func (f *fixture) order(t *testing.T, id string) *domainpayment.Order {
	t.Helper()
	o, err := f.factory.PaymentRepo.ByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load order %s: %v", id, err)
	}
	return o
}

func TestInitiateThenCapture(t *testing.T) {
	f := newFixture(t)

	ir, err := f.initiate(t, "ord-1")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if ir.Status != string(domainpayment.StatusCreated) {
		t.Fatalf("order status = %s", ir.Status)
	}
	if st := f.booking(t).State; st != domainbooking.StatePaymentPending {
		t.Fatalf("booking state = %s, want PAYMENT_PENDING", st)
	}

	cr, err := f.capture(t, "ord-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if cr.Status != string(domainpayment.StatusCaptured) || cr.TransactionID == "" {
		t.Fatalf("capture result = %+v", cr)
	}
	bk := f.booking(t)
	if bk.State != domainbooking.StateConfirmed || bk.TxnID != cr.TransactionID {
		t.Fatalf("booking = %s txn %s, want CONFIRMED/%s", bk.State, bk.TxnID, cr.TransactionID)
	}
}

func TestCaptureIsIdempotent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.initiate(t, "ord-1"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	first, err := f.capture(t, "ord-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	// the second call must not reach the provider again
	second, err := f.capture(t, "ord-1")
	if err != nil {
		t.Fatalf("repeat capture: %v", err)
	}
	if second.TransactionID != first.TransactionID {
		t.Fatalf("txn changed across captures: %s vs %s", first.TransactionID, second.TransactionID)
	}
	if second.Status != string(domainpayment.StatusCaptured) {
		t.Fatalf("status = %s", second.Status)
	}
}

func TestCaptureReconcilesUnseenSettlement(t *testing.T) {
	f := newFixture(t)
	if _, err := f.initiate(t, "ord-1"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	// the provider settled a previous attempt whose response we never saw
	providerID := f.order(t, "ord-1").ProviderID
	f.provider.Settle(providerID, "txn-external")

	cr, err := f.capture(t, "ord-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if cr.TransactionID != "txn-external" {
		t.Fatalf("txn = %s, want the provider's txn-external", cr.TransactionID)
	}
	bk := f.booking(t)
	if bk.State != domainbooking.StateConfirmed || bk.TxnID != "txn-external" {
		t.Fatalf("booking = %s txn %s, want CONFIRMED/txn-external", bk.State, bk.TxnID)
	}
	if o := f.order(t, "ord-1"); o.Status != domainpayment.StatusCaptured {
		t.Fatalf("order status = %s", o.Status)
	}
}

func TestCaptureDeclineKeepsBookingRetryable(t *testing.T) {
	f := newFixture(t)
	if _, err := f.initiate(t, "ord-1"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	f.provider.DeclineAll = true

	cr, err := f.capture(t, "ord-1")
	if err != nil {
		t.Fatalf("a decline is an outcome, not an error: %v", err)
	}
	if cr.Status != string(domainpayment.StatusFailed) || cr.FailReason == "" {
		t.Fatalf("capture result = %+v", cr)
	}
	if st := f.booking(t).State; st != domainbooking.StatePaymentPending {
		t.Fatalf("booking state = %s, want PAYMENT_PENDING", st)
	}

	// the failed order is closed for good
	if _, err := f.capture(t, "ord-1"); faults.KindOf(err) != faults.KindValidation {
		t.Fatalf("expected validation fault for a failed order, got %v", err)
	}

	// retrying attaches a fresh order to the same booking
	f.provider.DeclineAll = false
	if _, err := f.initiate(t, "ord-2"); err != nil {
		t.Fatalf("retry initiate: %v", err)
	}
	if got := f.booking(t).OrderID; got != "ord-2" {
		t.Fatalf("booking order = %s, want ord-2", got)
	}
	if _, err := f.capture(t, "ord-2"); err != nil {
		t.Fatalf("capture retry: %v", err)
	}
	if st := f.booking(t).State; st != domainbooking.StateConfirmed {
		t.Fatalf("booking state = %s, want CONFIRMED", st)
	}
}

func TestCaptureTransientFailure(t *testing.T) {
	f := newFixture(t)
	if _, err := f.initiate(t, "ord-1"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	f.provider.FailNext(1)

	_, err := f.capture(t, "ord-1")
	if !faults.IsRetryable(err) {
		t.Fatalf("expected retryable gateway fault, got %v", err)
	}
	if o := f.order(t, "ord-1"); o.Status != domainpayment.StatusCreated {
		t.Fatalf("order status = %s, want CREATED after transient failure", o.Status)
	}
	if st := f.booking(t).State; st != domainbooking.StatePaymentPending {
		t.Fatalf("booking state = %s", st)
	}

	// same order succeeds once the outage clears
	if _, err := f.capture(t, "ord-1"); err != nil {
		t.Fatalf("capture after outage: %v", err)
	}
	if st := f.booking(t).State; st != domainbooking.StateConfirmed {
		t.Fatalf("booking state = %s, want CONFIRMED", st)
	}
}

func TestInitiateRefusesSecondOpenOrder(t *testing.T) {
	f := newFixture(t)
	if _, err := f.initiate(t, "ord-1"); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// ord-1 never failed, so the booking may not accumulate another order
	_, err := f.initiate(t, "ord-2")
	if faults.KindOf(err) != faults.KindValidation {
		t.Fatalf("expected validation fault while ord-1 is open, got %v", err)
	}
	if got := f.booking(t).OrderID; got != "ord-1" {
		t.Fatalf("booking order = %s, want ord-1", got)
	}
	orders, err := f.factory.PaymentRepo.ListByBooking(context.Background(), domainbooking.BookingID("b1"))
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want the single open ord-1", len(orders))
	}
}

func TestInitiateValidations(t *testing.T) {
	f := newFixture(t)
	h := &InitiatePaymentHandler{Provider: f.provider, Outbox: f.outbox, Now: func() time.Time { return testNow }}

	if _, err := h.Handle(f.ctx, InitiatePaymentCommand{
		CommandID: "ord-1", BookingID: "b1", ActorID: testOwner,
		AmountCents: f.total.Amount, Currency: f.total.Currency,
	}); faults.KindOf(err) != faults.KindAuthorization {
		t.Fatalf("owner paying should be refused, got %v", err)
	}

	if _, err := h.Handle(f.ctx, InitiatePaymentCommand{
		CommandID: "ord-1", BookingID: "b1", ActorID: testRenter,
		AmountCents: f.total.Amount - 1, Currency: f.total.Currency,
	}); faults.KindOf(err) != faults.KindValidation {
		t.Fatalf("amount mismatch should be refused, got %v", err)
	}

	if _, err := h.Handle(f.ctx, InitiatePaymentCommand{
		CommandID: "ord-1", BookingID: "missing", ActorID: testRenter,
		AmountCents: f.total.Amount, Currency: f.total.Currency,
	}); faults.KindOf(err) != faults.KindNotFound {
		t.Fatalf("unknown booking should be not found, got %v", err)
	}
}
