// Package service bridges the booking core to outbound infrastructure the
// coordinator should not know about, currently the message broker.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kiarashv/movie-ticketing/internal/model"
	"github.com/kiarashv/movie-ticketing/internal/queue"
)

// AMQPNotifier publishes ReservationConfirmedEvent messages to the broker.
// It implements booking.Notifier.  Publishing is fire-and-forget from the
// coordinator's point of view: a broker outage is logged and swallowed,
// never surfaced to the customer who just paid.
type AMQPNotifier struct {
	URL string
}

// NewAMQPNotifier builds a notifier against the given broker URL; an empty
// URL falls back to the environment resolution in the queue package.
func NewAMQPNotifier(url string) *AMQPNotifier {
	if url == "" {
		url = queue.BrokerURL()
	}
	return &AMQPNotifier{URL: url}
}

// ReservationConfirmed builds and publishes the confirmation event.
func (n *AMQPNotifier) ReservationConfirmed(ctx context.Context, res *model.Reservation, scr *model.Screening, seats []model.Seat) {
	labels := make([]string, 0, len(seats))
	for i := range seats {
		labels = append(labels, seats[i].Label())
	}

	ev := queue.ReservationConfirmedEvent{
		ReservationID:    res.ID,
		ScreeningID:      scr.ID,
		Title:            scr.Title,
		Room:             scr.Room,
		StartsAt:         scr.StartsAt.UTC().Format(time.RFC3339),
		SeatLabels:       labels,
		TotalCents:       res.TotalCents,
		ConfirmationCode: res.ConfirmationCode,
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if res.Holder.Registered() {
		ev.UserID = *res.Holder.UserID
	} else {
		ev.GuestEmail = res.Holder.GuestEmail
	}

	if err := n.publish(ctx, ev); err != nil {
		log.Printf("notifier: publish failed for reservation %d: %v", res.ID, err)
	}
}

// publish opens a short-lived connection per event.  Confirmation volume is
// low enough that connection reuse is not worth the reconnect bookkeeping.
func (n *AMQPNotifier) publish(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
	conn, err := amqp.Dial(n.URL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.ConfirmedQueueName, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",
		queue.ConfirmedQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
