package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"

	"github.com/slugzin/leadflow-backend/internal/queue"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	q := queue.NewInMemoryQueue()

	received := make(chan any, 1)
	err := q.Subscribe("campaign_sends", func(payload any) error {
		received <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := q.Publish("campaign_sends", "send-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case payload := <-received:
		if payload != "send-1" {
			t.Errorf("expected send-1, got %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the payload")
	}
}

func TestPublishWithoutSubscriberFails(t *testing.T) {
	q := queue.NewInMemoryQueue()
	if err := q.Publish("campaign_sends", "send-1"); err == nil {
		t.Fatal("expected error when no subscriber is registered")
	}
}

func TestDeliveryRetriesReadsHeader(t *testing.T) {
	if got := queue.DeliveryRetries(nil); got != 0 {
		t.Errorf("missing headers must count as first attempt, got %d", got)
	}
	if got := queue.DeliveryRetries(amqp.Table{"x-retry-count": "2"}); got != 0 {
		t.Errorf("malformed counter must count as first attempt, got %d", got)
	}
	if got := queue.DeliveryRetries(queue.RetryHeaders(2)); got != 2 {
		t.Errorf("expected counter 2, got %d", got)
	}
}

func TestRetryCounterCapsRepublishing(t *testing.T) {
	var headers amqp.Table
	republished := 0
	for queue.DeliveryRetries(headers) < queue.MaxSendRetries {
		headers = queue.RetryHeaders(queue.DeliveryRetries(headers) + 1)
		republished++
	}
	if republished != queue.MaxSendRetries {
		t.Errorf("expected %d republishes before dropping, got %d", queue.MaxSendRetries, republished)
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		q.Subscribe("campaign_sends", func(payload any) error {
			wg.Done()
			return nil
		})
	}

	if err := q.Publish("campaign_sends", "send-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all subscribers received the payload")
	}
}
