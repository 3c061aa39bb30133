package outbox

import (
	"context"
	"sync"
	"time"

	appoutbox "github.com/dog52841/Rentify-sub001/internal/app/outbox"
)

// MemoryStore queues outbox records in memory. It backs the dev profile:
// handlers Add records through the application port and the worker drains
// them through EventStore, so the event feed behaves the same without mongo.
type MemoryStore struct {
	mu      sync.Mutex
	pending []*EventDocument
	sent    []*EventDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, &EventDocument{
		ID:         record.ID,
		Name:       record.Name,
		Payload:    record.Payload,
		OccurredAt: record.OccurredAt,
		Aggregate:  record.Aggregate,
		Headers:    record.Headers,
		State:      stateNew,
	})
	return nil
}

func (s *MemoryStore) Flush(ctx context.Context) error { return nil }

func (s *MemoryStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, doc := range s.pending {
		if doc.State == stateClaimed || doc.State == stateSent {
			continue
		}
		if doc.NextAttempt.After(now) {
			continue
		}
		doc.State = stateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		return doc, nil
	}
	return nil, nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range s.pending {
		if doc.ID == id {
			doc.State = stateSent
			doc.SentAt = time.Now().UTC()
			s.sent = append(s.sent, doc)
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.pending {
		if doc.ID == id {
			doc.State = stateFailed
			doc.Attempts++
			doc.NextAttempt = next
			doc.LastError = errMsg
			return nil
		}
	}
	return nil
}

// Sent exposes delivered documents for inspection.
func (s *MemoryStore) Sent() []*EventDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*EventDocument, len(s.sent))
	copy(out, s.sent)
	return out
}

var _ appoutbox.Outbox = (*MemoryStore)(nil)
var _ EventStore = (*MemoryStore)(nil)
