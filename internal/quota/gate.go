// Package quota is the single authorization point for the four metered
// resource kinds. Callers never see accounting failures: every Authorize
// resolves to a grant, a partial grant, or a denial, authoritative when
// the accounting store answered, advisory when computed from the last
// cached snapshot.
package quota

import (
	"context"
	"log"

	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/redisdb"
)

// Authority tells the caller whether a decision was confirmed by the
// accounting store or computed locally from a possibly stale snapshot.
type Authority string

const (
	Authoritative Authority = "authoritative"
	Advisory      Authority = "advisory"
)

type Decision struct {
	Granted   int
	Remaining int
	Authority Authority
}

// AccountingStore is the authoritative remote procedure.
type AccountingStore interface {
	Consume(operatorID string, kind model.ResourceKind, quantity int) (granted, remaining int, err error)
	Usage(operatorID string) ([]model.QuotaState, error)
}

// SnapshotCache holds the last successfully fetched usage per operator.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, operatorID string, states []model.QuotaState) error
	GetSnapshot(ctx context.Context, operatorID string) ([]model.QuotaState, error)
}

// ConnectionCounter reports how many connections the operator holds, for
// the first-connection bootstrap rule.
type ConnectionCounter interface {
	CountByOperator(operatorID string) (int, error)
}

type Gate struct {
	Accounts    AccountingStore
	Snapshot    SnapshotCache
	Connections ConnectionCounter
}

// Authorize grants up to quantity of the given kind. It never returns a
// transport error: when the accounting store is unreachable the decision
// falls back to the last snapshot and is marked Advisory.
func (g *Gate) Authorize(ctx context.Context, operatorID string, kind model.ResourceKind, quantity int) Decision {
	if quantity <= 0 {
		return Decision{Granted: 0, Remaining: 0, Authority: Authoritative}
	}

	// First connection is always free, regardless of stated allowance.
	if kind == model.KindConnection {
		count, err := g.Connections.CountByOperator(operatorID)
		if err == nil && count == 0 {
			return Decision{Granted: quantity, Remaining: 0, Authority: Authoritative}
		}
	}

	granted, remaining, err := g.Accounts.Consume(operatorID, kind, quantity)
	if err == nil {
		g.refreshSnapshot(ctx, operatorID)
		return Decision{Granted: granted, Remaining: remaining, Authority: Authoritative}
	}

	log.Println("⚠️ quota accounting unavailable, falling back to snapshot:", err)
	return g.advisory(ctx, operatorID, kind, quantity)
}

func (g *Gate) advisory(ctx context.Context, operatorID string, kind model.ResourceKind, quantity int) Decision {
	states, err := g.Snapshot.GetSnapshot(ctx, operatorID)
	if err != nil {
		// Never seen a usage read for this operator. Granting optimistically
		// beats blocking them; the next successful refresh reconciles.
		log.Println("⚠️ no quota snapshot available, granting advisorily:", err)
		return Decision{Granted: quantity, Remaining: 0, Authority: Advisory}
	}

	for _, state := range states {
		if state.ResourceKind != kind {
			continue
		}
		granted := quantity
		if rem := state.Remaining(); granted > rem {
			granted = rem
		}
		return Decision{Granted: granted, Remaining: state.Remaining() - granted, Authority: Advisory}
	}

	// Kind absent from the snapshot: treat like a missing snapshot.
	return Decision{Granted: quantity, Remaining: 0, Authority: Advisory}
}

// Refresh re-reads authoritative usage and overwrites the cached
// snapshot. Advisory consumption is not written back; the authoritative
// counters win.
func (g *Gate) Refresh(ctx context.Context, operatorID string) ([]model.QuotaState, error) {
	states, err := g.Accounts.Usage(operatorID)
	if err != nil {
		return nil, err
	}
	if err := g.Snapshot.SaveSnapshot(ctx, operatorID, states); err != nil {
		log.Println("⚠️ failed to cache quota snapshot:", err)
	}
	return states, nil
}

func (g *Gate) refreshSnapshot(ctx context.Context, operatorID string) {
	states, err := g.Accounts.Usage(operatorID)
	if err != nil {
		return
	}
	if err := g.Snapshot.SaveSnapshot(ctx, operatorID, states); err != nil {
		log.Println("⚠️ failed to cache quota snapshot:", err)
	}
}

var _ SnapshotCache = (*redisdb.RedisConnection)(nil)
