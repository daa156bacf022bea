package quota_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/quota"
)

// --- Mocks ---

type MockAccounts struct {
	granted   int
	remaining int
	err       error
	usage     []model.QuotaState
	usageErr  error
	consumed  int
}

func (m *MockAccounts) Consume(operatorID string, kind model.ResourceKind, quantity int) (int, int, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.consumed += quantity
	return m.granted, m.remaining, nil
}

func (m *MockAccounts) Usage(operatorID string) ([]model.QuotaState, error) {
	if m.usageErr != nil {
		return nil, m.usageErr
	}
	return m.usage, nil
}

type MockSnapshot struct {
	states []model.QuotaState
	saved  [][]model.QuotaState
}

func (m *MockSnapshot) SaveSnapshot(ctx context.Context, operatorID string, states []model.QuotaState) error {
	m.saved = append(m.saved, states)
	return nil
}

func (m *MockSnapshot) GetSnapshot(ctx context.Context, operatorID string) ([]model.QuotaState, error) {
	if m.states == nil {
		return nil, errors.New("no quota snapshot cached")
	}
	return m.states, nil
}

type MockCounter struct {
	count int
	err   error
}

func (m *MockCounter) CountByOperator(operatorID string) (int, error) {
	return m.count, m.err
}

func newGate(accounts *MockAccounts, snapshot *MockSnapshot, counter *MockCounter) *quota.Gate {
	return &quota.Gate{Accounts: accounts, Snapshot: snapshot, Connections: counter}
}

// --- Tests ---

func TestAuthorizeFullGrant(t *testing.T) {
	accounts := &MockAccounts{granted: 10, remaining: 40}
	gate := newGate(accounts, &MockSnapshot{}, &MockCounter{count: 2})

	decision := gate.Authorize(context.Background(), "op-1", model.KindDispatch, 10)
	if decision.Granted != 10 {
		t.Errorf("expected 10 granted, got %d", decision.Granted)
	}
	if decision.Authority != quota.Authoritative {
		t.Errorf("expected authoritative decision, got %s", decision.Authority)
	}
}

func TestAuthorizePartialGrant(t *testing.T) {
	accounts := &MockAccounts{granted: 30, remaining: 0}
	gate := newGate(accounts, &MockSnapshot{}, &MockCounter{count: 2})

	decision := gate.Authorize(context.Background(), "op-1", model.KindDispatch, 50)
	if decision.Granted != 30 {
		t.Errorf("expected 30 granted, got %d", decision.Granted)
	}
}

func TestAuthorizeFallsBackToSnapshot(t *testing.T) {
	accounts := &MockAccounts{err: errors.New("connection refused")}
	snapshot := &MockSnapshot{states: []model.QuotaState{
		{ResourceKind: model.KindDispatch, Limit: 50, Used: 45, ResetAt: time.Now().Add(time.Hour)},
	}}
	gate := newGate(accounts, snapshot, &MockCounter{count: 2})

	decision := gate.Authorize(context.Background(), "op-1", model.KindDispatch, 20)
	if decision.Authority != quota.Advisory {
		t.Fatalf("expected advisory decision, got %s", decision.Authority)
	}
	if decision.Granted != 5 {
		t.Errorf("expected 5 granted from snapshot, got %d", decision.Granted)
	}
}

func TestAuthorizeNoSnapshotGrantsOptimistically(t *testing.T) {
	accounts := &MockAccounts{err: errors.New("connection refused")}
	gate := newGate(accounts, &MockSnapshot{}, &MockCounter{count: 2})

	decision := gate.Authorize(context.Background(), "op-1", model.KindDispatch, 7)
	if decision.Authority != quota.Advisory {
		t.Fatalf("expected advisory decision, got %s", decision.Authority)
	}
	if decision.Granted != 7 {
		t.Errorf("expected optimistic full grant, got %d", decision.Granted)
	}
}

func TestFirstConnectionAlwaysGranted(t *testing.T) {
	// Allowance fully consumed, but the operator has no connections yet.
	accounts := &MockAccounts{granted: 0, remaining: 0}
	gate := newGate(accounts, &MockSnapshot{}, &MockCounter{count: 0})

	decision := gate.Authorize(context.Background(), "op-1", model.KindConnection, 1)
	if decision.Granted != 1 {
		t.Errorf("bootstrap rule: expected 1 granted, got %d", decision.Granted)
	}
	if accounts.consumed != 0 {
		t.Errorf("bootstrap grant must not consume allowance, consumed %d", accounts.consumed)
	}
}

func TestSecondConnectionConsumesQuota(t *testing.T) {
	accounts := &MockAccounts{granted: 0, remaining: 0}
	gate := newGate(accounts, &MockSnapshot{}, &MockCounter{count: 1})

	decision := gate.Authorize(context.Background(), "op-1", model.KindConnection, 1)
	if decision.Granted != 0 {
		t.Errorf("expected denial once a connection exists, got %d granted", decision.Granted)
	}
}

func TestRefreshOverwritesSnapshot(t *testing.T) {
	usage := []model.QuotaState{{ResourceKind: model.KindDispatch, Limit: 50, Used: 12}}
	accounts := &MockAccounts{usage: usage}
	snapshot := &MockSnapshot{}
	gate := newGate(accounts, snapshot, &MockCounter{})

	states, err := gate.Refresh(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 1 || states[0].Used != 12 {
		t.Errorf("unexpected states: %+v", states)
	}
	if len(snapshot.saved) != 1 {
		t.Errorf("expected snapshot to be overwritten once, got %d saves", len(snapshot.saved))
	}
}
