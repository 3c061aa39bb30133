package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dog52841/Rentify-sub001/internal/app/policies"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

// MemoryProvider simulates the payment provider for the dev profile and
// tests. Behavior is programmable per order via Decline and FailNext.
type MemoryProvider struct {
	mu     sync.Mutex
	orders map[string]*policies.ProviderOrder

	// DeclineAll makes every capture a terminal decline.
	DeclineAll bool
	// failNext counts down transient failures injected by FailNext.
	failNext int
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{orders: make(map[string]*policies.ProviderOrder)}
}

// FailNext injects n transient gateway failures before captures succeed again.
func (p *MemoryProvider) FailNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

func (p *MemoryProvider) CreateOrder(ctx context.Context, reference string, amount money.Money) (policies.ProviderOrder, error) {
	if err := ctx.Err(); err != nil {
		return policies.ProviderOrder{}, faults.Gateway("payments: create order interrupted", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	order := &policies.ProviderOrder{
		ID:        uuid.NewString(),
		Reference: reference,
		Amount:    amount,
		State:     policies.OrderCreated,
		CreatedAt: time.Now().UTC(),
	}
	p.orders[order.ID] = order
	return *order, nil
}

func (p *MemoryProvider) Capture(ctx context.Context, providerOrderID string) (policies.ProviderCapture, error) {
	if err := ctx.Err(); err != nil {
		return policies.ProviderCapture{}, faults.Gateway("payments: capture interrupted", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	order, ok := p.orders[providerOrderID]
	if !ok {
		return policies.ProviderCapture{}, faults.NotFoundf("payments: unknown provider order %s", providerOrderID)
	}
	if p.failNext > 0 {
		p.failNext--
		return policies.ProviderCapture{}, faults.Gateway("payments: simulated gateway outage", nil)
	}
	switch order.State {
	case policies.OrderCaptured:
		return policies.ProviderCapture{}, policies.ErrAlreadyCaptured
	case policies.OrderDeclined:
		return policies.ProviderCapture{}, faults.Rejection("payments: order previously declined", nil)
	}
	if p.DeclineAll {
		order.State = policies.OrderDeclined
		return policies.ProviderCapture{}, faults.Rejection("payments: card declined", nil)
	}
	order.State = policies.OrderCaptured
	order.TxnID = fmt.Sprintf("txn-%s", uuid.NewString())
	return policies.ProviderCapture{OrderID: order.ID, TxnID: order.TxnID, State: policies.OrderCaptured}, nil
}

func (p *MemoryProvider) Fetch(ctx context.Context, providerOrderID string) (policies.ProviderOrder, error) {
	if err := ctx.Err(); err != nil {
		return policies.ProviderOrder{}, faults.Gateway("payments: fetch interrupted", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	order, ok := p.orders[providerOrderID]
	if !ok {
		return policies.ProviderOrder{}, faults.NotFoundf("payments: unknown provider order %s", providerOrderID)
	}
	return *order, nil
}

// Settle forces an order into the captured state without going through
// Capture, mimicking a settlement the core never observed.
func (p *MemoryProvider) Settle(providerOrderID, txn string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if order, ok := p.orders[providerOrderID]; ok {
		order.State = policies.OrderCaptured
		order.TxnID = txn
	}
}

var _ policies.PaymentProvider = (*MemoryProvider)(nil)
