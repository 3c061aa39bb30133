package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"
)

// Topics carrying the booking lifecycle feed.
var Topics = []string{"booking.events.v1", "payment.events.v1", "calendar.events.v1"}

// Dispatcher consumes the event feed and routes each lifecycle event to the
// affected parties. Events arrive partitioned by aggregate id, so one
// booking's notifications are delivered in lifecycle order.
type Dispatcher struct {
	Logger *slog.Logger
	Sink   Sink
	Dedup  Dedup
}

// Dedup tracks consumed event ids so redeliveries do not notify twice.
type Dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Sink receives routed notifications; the default logs them. A real sender
// (email, push) plugs in here.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

type Notification struct {
	Recipient string
	Event     string
	BookingID string
	ListingID string
	Data      map[string]any
}

type cloudEvent struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Time string         `json:"time"`
	Data map[string]any `json:"data"`
}

func (d *Dispatcher) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		d.logger().Warn("notify: undecodable event", "topic", msg.Topic, "error", err)
		return nil
	}
	if d.Dedup != nil && evt.ID != "" {
		seen, err := d.Dedup.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	for _, n := range route(evt) {
		if err := d.sink().Notify(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// route decides who hears about each event.
func route(evt cloudEvent) []Notification {
	renter, _ := evt.Data["renter_id"].(string)
	owner, _ := evt.Data["owner_id"].(string)
	bookingID, _ := evt.Data["booking_id"].(string)
	listingID, _ := evt.Data["listing_id"].(string)

	base := Notification{Event: evt.Type, BookingID: bookingID, ListingID: listingID, Data: evt.Data}
	var out []Notification
	add := func(recipient string) {
		if recipient == "" {
			return
		}
		n := base
		n.Recipient = recipient
		out = append(out, n)
	}

	switch evt.Type {
	case "booking.requested.v1":
		add(owner)
	case "booking.approved.v1", "booking.rejected.v1":
		add(renter)
	case "payment.initiated.v1":
		add(owner)
	case "payment.captured.v1", "booking.confirmed.v1":
		add(renter)
		add(owner)
	case "booking.cancelled.v1", "booking.completed.v1":
		add(renter)
		add(owner)
	}
	return out
}

func (d *Dispatcher) sink() Sink {
	if d.Sink != nil {
		return d.Sink
	}
	return logSink{logger: d.logger()}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

type logSink struct {
	logger *slog.Logger
}

func (s logSink) Notify(ctx context.Context, n Notification) error {
	s.logger.Info("notification",
		"recipient", n.Recipient,
		"event", n.Event,
		"booking_id", n.BookingID,
		"listing_id", n.ListingID,
	)
	return nil
}
