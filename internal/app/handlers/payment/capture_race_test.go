package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
	"github.com/dog52841/Rentify-sub001/internal/app/policies"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

// gatedProvider counts captures that reach the real provider and can park a
// single capture mid-call to widen race windows.
type gatedProvider struct {
	inner policies.PaymentProvider

	mu      sync.Mutex
	charges int

	hold    string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) CreateOrder(ctx context.Context, reference string, amount money.Money) (policies.ProviderOrder, error) {
	return g.inner.CreateOrder(ctx, reference, amount)
}

func (g *gatedProvider) Capture(ctx context.Context, providerOrderID string) (policies.ProviderCapture, error) {
	if g.hold != "" && providerOrderID == g.hold {
		g.entered <- struct{}{}
		<-g.release
	}
	g.mu.Lock()
	g.charges++
	g.mu.Unlock()
	return g.inner.Capture(ctx, providerOrderID)
}

func (g *gatedProvider) Fetch(ctx context.Context, providerOrderID string) (policies.ProviderOrder, error) {
	return g.inner.Fetch(ctx, providerOrderID)
}

func (g *gatedProvider) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges
}

// captureBus assembles the dispatch path captures travel in production:
// serialization, then a fresh unit of work per command.
func captureBus(f *fixture, provider policies.PaymentProvider) commands.Bus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, CaptureOrderCommand{}.Key(), &CaptureOrderHandler{
		Provider: provider,
		Outbox:   f.outbox,
		Locks:    f.locks,
		Now:      func() time.Time { return testNow },
	})
	return middleware.ChainCommands(bus,
		middleware.Serialize(f.locks),
		middleware.Transaction(f.factory, nil),
	)
}

func TestConcurrentCapturesChargeOnce(t *testing.T) {
	f := newFixture(t)
	if _, err := f.initiate(t, "ord-1"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	provider := &gatedProvider{inner: f.provider}
	bus := captureBus(f, provider)

	const n = 4
	var wg sync.WaitGroup
	results := make([]*CaptureOrderResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = commands.Dispatch[CaptureOrderCommand, *CaptureOrderResult](
				context.Background(), bus, CaptureOrderCommand{OrderID: "ord-1", ActorID: testRenter})
		}(i)
	}
	wg.Wait()

	txn := ""
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("capture %d: %v", i, errs[i])
		}
		if results[i].Status != string(domainpayment.StatusCaptured) || results[i].TransactionID == "" {
			t.Fatalf("capture %d result = %+v", i, results[i])
		}
		if txn == "" {
			txn = results[i].TransactionID
		} else if results[i].TransactionID != txn {
			t.Fatalf("capture %d txn = %s, others saw %s", i, results[i].TransactionID, txn)
		}
	}
	if got := provider.chargeCount(); got != 1 {
		t.Fatalf("provider charged %d times, want 1", got)
	}
	bk := f.booking(t)
	if bk.State != domainbooking.StateConfirmed || bk.TxnID != txn {
		t.Fatalf("booking = %s txn %s, want CONFIRMED/%s", bk.State, bk.TxnID, txn)
	}
}

func TestConcurrentSiblingCapturesSettleOnce(t *testing.T) {
	f := newFixture(t)
	if _, err := f.initiate(t, "ord-1"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	// a second open order left over from before the single-open-order guard
	po2, err := f.provider.CreateOrder(context.Background(), "b1", f.total)
	if err != nil {
		t.Fatalf("provider order: %v", err)
	}
	ord2, err := domainpayment.NewOrder("ord-2", domainbooking.BookingID("b1"), po2.ID, f.total, testNow)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if err := f.factory.PaymentRepo.Save(context.Background(), ord2); err != nil {
		t.Fatalf("save order: %v", err)
	}

	provider := &gatedProvider{
		inner:   f.provider,
		hold:    f.order(t, "ord-1").ProviderID,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	bus := captureBus(f, provider)

	var wg sync.WaitGroup
	var err1, err2 error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err1 = commands.Dispatch[CaptureOrderCommand, *CaptureOrderResult](
			context.Background(), bus, CaptureOrderCommand{OrderID: "ord-1", ActorID: testRenter})
	}()
	// ord-1 is parked inside the provider call, still holding the booking
	<-provider.entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err2 = commands.Dispatch[CaptureOrderCommand, *CaptureOrderResult](
			context.Background(), bus, CaptureOrderCommand{OrderID: "ord-2", ActorID: testRenter})
	}()
	time.Sleep(10 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	if err1 != nil {
		t.Fatalf("capture ord-1: %v", err1)
	}
	if faults.KindOf(err2) != faults.KindValidation {
		t.Fatalf("capture ord-2 should be refused after ord-1 settled, got %v", err2)
	}
	if got := provider.chargeCount(); got != 1 {
		t.Fatalf("provider charged %d times, want 1", got)
	}
	if o := f.order(t, "ord-1"); o.Status != domainpayment.StatusCaptured {
		t.Fatalf("ord-1 status = %s", o.Status)
	}
	if o := f.order(t, "ord-2"); o.Status != domainpayment.StatusCreated {
		t.Fatalf("ord-2 status = %s, want CREATED and never charged", o.Status)
	}
	bk := f.booking(t)
	if bk.State != domainbooking.StateConfirmed || bk.OrderID != "ord-1" {
		t.Fatalf("booking = %s via %s, want CONFIRMED via ord-1", bk.State, bk.OrderID)
	}
}
