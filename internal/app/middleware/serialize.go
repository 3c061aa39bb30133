package middleware

import (
	"context"
	"sync"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
)

// SerializedCommand marks commands whose execution must be linearized per
// aggregate. Calendar mutations key on the listing ("listing:<id>") so a
// single writer holds each calendar; booking-only transitions key on the
// booking ("booking:<id>"). Commands with distinct keys run in parallel.
type SerializedCommand interface {
	commands.Command
	SerializationKey() string
}

// KeyedMutex hands out one mutex per key. Entries are kept for the process
// lifetime; the key space is bounded by active listings and bookings.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// Serialize linearizes dispatch of commands sharing a serialization key.
func Serialize(locks *KeyedMutex) CommandMiddleware {
	if locks == nil {
		panic("middleware: keyed mutex required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			sc, ok := cmd.(SerializedCommand)
			if !ok || sc.SerializationKey() == "" {
				return nextFn(ctx, cmd)
			}
			unlock := locks.Lock(sc.SerializationKey())
			defer unlock()
			return nextFn(ctx, cmd)
		})
	}
}
