package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AmqpNotifier publishes booking events to a topic exchange with routing
// keys of the form booking.status.<status>.
type AmqpNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAmqpNotifier(url, exchange string) (*AmqpNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AmqpNotifier{conn: conn, channel: ch, exchange: exchange}, nil
}

func (n *AmqpNotifier) BookingStatusChanged(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	key := "booking.status." + strings.ToLower(ev.Status)
	err = n.channel.PublishWithContext(ctx, n.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func (n *AmqpNotifier) Close() error {
	if err := n.channel.Close(); err != nil {
		_ = n.conn.Close()
		return err
	}
	return n.conn.Close()
}
