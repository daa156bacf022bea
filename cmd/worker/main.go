// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	"github.com/slugzin/leadflow-backend/internal/config"
	"github.com/slugzin/leadflow-backend/internal/db"
	"github.com/slugzin/leadflow-backend/internal/gateway"
	"github.com/slugzin/leadflow-backend/internal/queue"
	"github.com/slugzin/leadflow-backend/internal/repository"
	"github.com/slugzin/leadflow-backend/internal/sender"
)

func main() {
	cfg := config.MustLoad()

	database := db.Init(cfg.Database)

	processor := &sender.Processor{
		Sends:       &repository.ScheduledSendRepository{DB: database},
		Campaigns:   &repository.CampaignRepository{DB: database},
		Connections: &repository.ConnectionRepository{DB: database},
		Recipients:  &repository.RecipientRepository{DB: database},
		Gateway:     gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey),
	}

	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.AMQP.Queue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queue.SendJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			err := processor.Process(context.Background(), job.ScheduledSendID)
			if err != nil {
				log.Println("Failed to process scheduled send:", err)
				// Republish with the counter bumped; a plain Nack requeue
				// keeps the original headers and retries forever.
				retries := queue.DeliveryRetries(d.Headers)
				if retries < queue.MaxSendRetries {
					pubErr := ch.Publish("", q.Name, false, false, amqp.Publishing{
						ContentType:  "application/json",
						DeliveryMode: amqp.Persistent,
						Headers:      queue.RetryHeaders(retries + 1),
						Body:         d.Body,
					})
					if pubErr != nil {
						log.Println("Failed to requeue scheduled send:", pubErr)
						d.Nack(false, true)
						continue
					}
				} else {
					log.Println("Job permanently failed after", queue.MaxSendRetries, "attempts:", job.ScheduledSendID)
				}
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for messages...")
	<-forever
}
