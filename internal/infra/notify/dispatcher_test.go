package notify

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
)

type captureSink struct {
	notes []Notification
}

func (s *captureSink) Notify(ctx context.Context, n Notification) error {
	s.notes = append(s.notes, n)
	return nil
}

type memDedup struct {
	seen map[string]bool
}

func (d *memDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[eventID] {
		return true, nil
	}
	d.seen[eventID] = true
	return false, nil
}

func message(id, typ string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic: "booking.events.v1",
		Value: []byte(`{"id":"` + id + `","type":"` + typ + `","data":{"booking_id":"b1","listing_id":"lst-1","renter_id":"renter-1","owner_id":"owner-1"}}`),
	}
}

func TestRouting(t *testing.T) {
	cases := []struct {
		event      string
		recipients []string
	}{
		{"booking.requested.v1", []string{"owner-1"}},
		{"booking.approved.v1", []string{"renter-1"}},
		{"booking.rejected.v1", []string{"renter-1"}},
		{"payment.initiated.v1", []string{"owner-1"}},
		{"booking.confirmed.v1", []string{"renter-1", "owner-1"}},
		{"booking.cancelled.v1", []string{"renter-1", "owner-1"}},
		{"calendar.blocked.v1", nil},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			sink := &captureSink{}
			d := &Dispatcher{Sink: sink}
			if err := d.Handle(context.Background(), message("evt-1", tc.event)); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(sink.notes) != len(tc.recipients) {
				t.Fatalf("notes = %v, want recipients %v", sink.notes, tc.recipients)
			}
			for i, want := range tc.recipients {
				if sink.notes[i].Recipient != want {
					t.Fatalf("recipient[%d] = %s, want %s", i, sink.notes[i].Recipient, want)
				}
				if sink.notes[i].BookingID != "b1" {
					t.Fatalf("booking id = %s", sink.notes[i].BookingID)
				}
			}
		})
	}
}

func TestRedeliveryIsDeduplicated(t *testing.T) {
	sink := &captureSink{}
	d := &Dispatcher{Sink: sink, Dedup: &memDedup{}}

	msg := message("evt-1", "booking.approved.v1")
	if err := d.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := d.Handle(context.Background(), msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(sink.notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(sink.notes))
	}
}

func TestUndecodableMessageIsSkipped(t *testing.T) {
	sink := &captureSink{}
	d := &Dispatcher{Sink: sink}
	msg := &sarama.ConsumerMessage{Topic: "booking.events.v1", Value: []byte("not json")}
	if err := d.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.notes) != 0 {
		t.Fatalf("notes = %v", sink.notes)
	}
}
