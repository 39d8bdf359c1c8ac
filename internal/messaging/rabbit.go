// internal/messaging/rabbit.go
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"consignment-api/internal/metrics"
)

const (
	cycleEventsQueue = "consignment_cycle_events"
	cycleEventsDLQ   = "consignment_cycle_events_dlq"
)

// RabbitClient publishes finished-cycle summaries so downstream consumers
// (dashboards, alerting) can react without polling the status API.
type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
}

func NewRabbitClient(url string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
	}, nil
}

// DeclareCycleEventsQueue creates the durable events queue and its DLQ.
func (r *RabbitClient) DeclareCycleEventsQueue() error {
	_, err := r.channel.QueueDeclare(
		cycleEventsDLQ,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cycleEventsDLQ,
	}
	_, err = r.channel.QueueDeclare(
		cycleEventsQueue,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare cycle events queue: %w", err)
	}
	return nil
}

// PublishCycleSummary sends the summary as a persistent JSON message.
func (r *RabbitClient) PublishCycleSummary(summary any) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode cycle summary: %w", err)
	}

	err = r.channel.Publish(
		"",               // default exchange
		cycleEventsQueue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", cycleEventsQueue, err)
	}
	return nil
}

// UpdateQueueDepth exports the events queue depth as a gauge.
func (r *RabbitClient) UpdateQueueDepth() error {
	q, err := r.channel.QueueInspect(cycleEventsQueue)
	if err != nil {
		return fmt.Errorf("inspect queue %s: %w", cycleEventsQueue, err)
	}
	metrics.QueueDepth.Set(float64(q.Messages))
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
