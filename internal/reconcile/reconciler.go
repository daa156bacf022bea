// Package reconcile copies gateway-reported truth onto local records.
// It never invents state: unreachable gateway means stale local rows and
// a retriable error, nothing else.
package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/slugzin/leadflow-backend/internal/gateway"
	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/pairing"
	"github.com/slugzin/leadflow-backend/internal/repository"
)

type Reconciler struct {
	Gateway     gateway.Client
	Connections repository.ConnectionRepositoryInterface
	Sends       repository.ScheduledSendRepositoryInterface
	Recipients  repository.RecipientRepositoryInterface
	Pairing     *pairing.Manager

	mu        sync.Mutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
	isRunning bool
}

// ReconcileConnection refreshes one connection from the gateway. An
// "open" report confirms the pairing and pulls send outcomes since the
// last sync; a "closed" report downgrades a previously connected row.
func (r *Reconciler) ReconcileConnection(ctx context.Context, connectionID string) (*model.Connection, error) {
	connection, err := r.Connections.GetByID(connectionID)
	if err != nil {
		return nil, err
	}

	report, err := r.Gateway.ConnectionState(ctx, connection.TechnicalName)
	if err != nil {
		return nil, err // retriable; local state untouched
	}

	switch report.Status {
	case "open":
		// Outcomes accumulated since the last sync; first sync looks a
		// day back.
		since := time.Now().Add(-24 * time.Hour)
		if connection.LastSyncedAt != nil {
			since = *connection.LastSyncedAt
		}
		if err := r.Connections.MarkConnected(connection.ID, time.Now()); err != nil {
			return nil, err
		}
		if connection.Status != model.ConnectionConnected && r.Pairing != nil {
			r.Pairing.Confirm(connection.ID)
		}
		if _, err := r.ReconcileSends(ctx, connection.ID, since); err != nil {
			log.Println("⚠️ failed to reconcile send outcomes for", connection.ID, ":", err)
		}
	default:
		if connection.Status == model.ConnectionConnected {
			if err := r.Connections.MarkDisconnected(connection.ID); err != nil {
				return nil, err
			}
		}
	}

	return r.Connections.GetByID(connectionID)
}

// ReconcileAll refreshes every connection the operator holds. Failures
// on individual connections are logged and skipped.
func (r *Reconciler) ReconcileAll(ctx context.Context, operatorID string) (int, error) {
	connections, err := r.Connections.ListByOperator(operatorID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, connection := range connections {
		if _, err := r.ReconcileConnection(ctx, connection.ID); err != nil {
			log.Println("⚠️ failed to reconcile connection", connection.ID, ":", err)
			continue
		}
		updated++
	}
	return updated, nil
}

// ReconcileSends copies gateway send outcomes onto scheduled sends. Only
// gateway-reported transitions are applied.
func (r *Reconciler) ReconcileSends(ctx context.Context, connectionID string, since time.Time) (int, error) {
	connection, err := r.Connections.GetByID(connectionID)
	if err != nil {
		return 0, err
	}

	outcomes, err := r.Gateway.MessageOutcomes(ctx, connection.TechnicalName, since)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, outcome := range outcomes {
		if outcome.Responded {
			r.markResponded(outcome.ClientID)
		}
		var status model.SendStatus
		switch outcome.Status {
		case "sent":
			status = model.SendSent
		case "failed":
			status = model.SendFailed
		default:
			continue
		}
		if err := r.Sends.UpdateStatus(outcome.ClientID, status, outcome.Error); err != nil {
			log.Println("⚠️ failed to apply send outcome", outcome.ClientID, ":", err)
			continue
		}
		applied++
	}
	return applied, nil
}

// markResponded promotes the lead behind a send when the gateway saw a
// reply to it.
func (r *Reconciler) markResponded(sendID string) {
	send, err := r.Sends.GetByID(sendID)
	if err != nil || send == nil {
		return
	}
	if err := r.Recipients.UpdateStatus(send.RecipientID, model.RecipientResponded); err != nil {
		log.Println("⚠️ failed to mark recipient as responded:", err)
	}
}

// Start runs periodic reconciliation for the operator until Stop.
func (r *Reconciler) Start(ctx context.Context, operatorID string, interval time.Duration) {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				if _, err := r.ReconcileAll(ctx, operatorID); err != nil {
					log.Println("⚠️ periodic reconciliation failed:", err)
				}
			}
		}
	}()
}

func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	close(r.stopCh)
	r.mu.Unlock()
	r.wg.Wait()
}
