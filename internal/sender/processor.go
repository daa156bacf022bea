// Package sender executes scheduled sends pulled off the queue.
package sender

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/slugzin/leadflow-backend/internal/gateway"
	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/queue"
	"github.com/slugzin/leadflow-backend/internal/repository"
)

type Processor struct {
	Sends       repository.ScheduledSendRepositoryInterface
	Campaigns   repository.CampaignRepositoryInterface
	Connections repository.ConnectionRepositoryInterface
	Recipients  repository.RecipientRepositoryInterface
	Gateway     gateway.Client
}

// Process delivers one scheduled send. scheduledFor is honored as a
// pacing hint: the processor waits out any remaining delay before
// handing the message to the gateway.
func (p *Processor) Process(ctx context.Context, sendID string) error {
	send, err := p.Sends.GetByID(sendID)
	if err != nil {
		return err
	}
	if send == nil {
		log.Println("⚠️ scheduled send not found, dropping:", sendID)
		return nil // no retry
	}
	if send.Status == model.SendSent {
		return nil // already delivered, requeue duplicate
	}

	if wait := time.Until(send.ScheduledFor); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if err := p.Sends.UpdateStatus(send.ID, model.SendProcessing, ""); err != nil {
		return err
	}

	connection, err := p.Connections.GetByID(send.ConnectionID)
	if err != nil {
		return p.fail(send, err)
	}

	recipients, err := p.Recipients.GetByIDs(connection.OperatorID, []string{send.RecipientID})
	if err != nil {
		return p.fail(send, err)
	}
	if len(recipients) == 0 {
		return p.fail(send, fmt.Errorf("recipient %s no longer exists", send.RecipientID))
	}

	err = p.Gateway.SendText(ctx, connection.TechnicalName, recipients[0].Phone, send.RenderedContent, send.ID)
	if err != nil {
		return p.fail(send, err)
	}

	if err := p.Sends.UpdateStatus(send.ID, model.SendSent, ""); err != nil {
		return err
	}
	if err := p.Campaigns.IncrementResult(send.CampaignID, model.SendSent); err != nil {
		log.Println("⚠️ failed to update campaign counters:", err)
	}
	return nil
}

func (p *Processor) fail(send *model.ScheduledSend, cause error) error {
	if err := p.Sends.UpdateStatus(send.ID, model.SendFailed, cause.Error()); err != nil {
		log.Println("⚠️ failed to record send failure:", err)
	}
	if err := p.Campaigns.IncrementResult(send.CampaignID, model.SendFailed); err != nil {
		log.Println("⚠️ failed to update campaign counters:", err)
	}
	return cause
}

// StartSubscriber wires the processor to an in-process queue, for
// single-binary runs without RabbitMQ.
func StartSubscriber(q queue.Queue, p *Processor) {
	err := q.Subscribe("campaign_sends", func(payload any) error {
		sendID, ok := payload.(string)
		if !ok {
			log.Println("⚠️ invalid payload type, expected scheduled send id")
			return nil
		}
		return p.Process(context.Background(), sendID)
	})
	if err != nil {
		log.Println("⚠️ failed to start subscriber for campaign_sends:", err)
	}
}
