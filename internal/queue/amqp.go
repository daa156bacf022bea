package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// SendJob is the wire payload between the server and the send worker.
type SendJob struct {
	ScheduledSendID string `json:"scheduled_send_id"`
}

// MaxSendRetries caps how many times a failed job is republished before
// it is dropped.
const MaxSendRetries = 3

// DeliveryRetries reads the retry counter from a delivery's headers.
// Missing or malformed headers count as a first attempt.
func DeliveryRetries(headers amqp.Table) int32 {
	if v, ok := headers["x-retry-count"].(int32); ok {
		return v
	}
	return 0
}

// RetryHeaders stamps the counter onto a republished delivery.
func RetryHeaders(count int32) amqp.Table {
	return amqp.Table{"x-retry-count": count}
}

// AMQPQueue publishes scheduled-send jobs to a durable RabbitMQ queue.
// Subscribing is the worker binary's side; this transport only publishes.
type AMQPQueue struct {
	channel *amqp.Channel
	queue   string
}

func NewAMQPQueue(conn *amqp.Connection, queueName string) (*AMQPQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, err
	}

	return &AMQPQueue{channel: ch, queue: queueName}, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	sendID, ok := payload.(string)
	if !ok {
		return fmt.Errorf("expected scheduled send id, got %T", payload)
	}

	body, err := json.Marshal(SendJob{ScheduledSendID: sendID})
	if err != nil {
		return err
	}

	return q.channel.Publish(
		"",      // default exchange
		q.queue, // routing key; the topic is fixed at declare time
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	return fmt.Errorf("AMQP consumption runs in the worker binary, not through Subscribe")
}

func (q *AMQPQueue) Close() error {
	return q.channel.Close()
}

var _ Queue = (*AMQPQueue)(nil)
