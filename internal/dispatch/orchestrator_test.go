package dispatch_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/slugzin/leadflow-backend/internal/dispatch"
	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/quota"
)

// --- Mocks ---

type MockCampaignRepo struct {
	names   []string
	created []*model.Campaign
}

func (m *MockCampaignRepo) Create(c *model.Campaign) error {
	c.ID = "camp-" + strconv.Itoa(len(m.created)+1)
	c.CreatedAt = time.Now()
	m.created = append(m.created, c)
	m.names = append(m.names, c.Name)
	return nil
}

func (m *MockCampaignRepo) GetByID(id string) (*model.Campaign, error) {
	for _, c := range m.created {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (m *MockCampaignRepo) ListCampaigns(operatorID string, offset, limit int, kind string) ([]*model.Campaign, int, error) {
	return m.created, len(m.created), nil
}

func (m *MockCampaignRepo) NamesWithPrefix(operatorID, prefix string) ([]string, error) {
	matched := []string{}
	for _, name := range m.names {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

func (m *MockCampaignRepo) IncrementResult(campaignID string, status model.SendStatus) error {
	return nil
}

// SoftDelete keeps the name reserved, matching the real repository.
func (m *MockCampaignRepo) SoftDelete(id string) error { return nil }

func (m *MockCampaignRepo) GetCampaignStats(campaignID string) (map[string]int, error) {
	return map[string]int{}, nil
}

type MockSendRepo struct {
	sends     []*model.ScheduledSend
	failAfter int // fail every Create once this many succeeded; 0 disables
}

func (m *MockSendRepo) Create(s *model.ScheduledSend) error {
	if m.failAfter > 0 && len(m.sends) >= m.failAfter {
		return fmt.Errorf("insert failed")
	}
	s.ID = "send-" + strconv.Itoa(len(m.sends)+1)
	m.sends = append(m.sends, s)
	return nil
}

func (m *MockSendRepo) GetByID(id string) (*model.ScheduledSend, error) { return nil, nil }
func (m *MockSendRepo) ListByCampaign(campaignID string) ([]model.ScheduledSend, error) {
	return nil, nil
}
func (m *MockSendRepo) UpdateStatus(id string, status model.SendStatus, lastError string) error {
	return nil
}

type MockRecipientRepo struct{}

func (m *MockRecipientRepo) GetByIDs(operatorID string, ids []string) ([]model.Recipient, error) {
	// Deliberately reversed: the orchestrator must restore input order.
	recipients := make([]model.Recipient, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		recipients = append(recipients, model.Recipient{
			ID:          ids[i],
			CompanyName: "Empresa " + ids[i],
			Phone:       "+55119" + ids[i],
		})
	}
	return recipients, nil
}

func (m *MockRecipientRepo) ListBySearch(operatorID, searchTerm string, offset, limit int) ([]model.Recipient, error) {
	return nil, nil
}
func (m *MockRecipientRepo) Create(rec *model.Recipient) error { return nil }
func (m *MockRecipientRepo) UpdateStatus(id, status string) error { return nil }

type MockConnectionRepo struct {
	status model.ConnectionStatus
}

func (m *MockConnectionRepo) GetByID(id string) (*model.Connection, error) {
	status := m.status
	if status == "" {
		status = model.ConnectionConnected
	}
	return &model.Connection{ID: id, OperatorID: "op-1", TechnicalName: "conta-abc", Status: status}, nil
}

func (m *MockConnectionRepo) Create(c *model.Connection) error { return nil }
func (m *MockConnectionRepo) ListByOperator(operatorID string) ([]model.Connection, error) {
	return nil, nil
}
func (m *MockConnectionRepo) CountByOperator(operatorID string) (int, error) { return 1, nil }
func (m *MockConnectionRepo) SetPairingCode(id, code string, issuedAt time.Time) error {
	return nil
}
func (m *MockConnectionRepo) MarkConnected(id string, syncedAt time.Time) error { return nil }
func (m *MockConnectionRepo) MarkDisconnected(id string) error { return nil }
func (m *MockConnectionRepo) Delete(id string) error { return nil }

type MockAuthorizer struct {
	granted func(quantity int) int
}

func (m *MockAuthorizer) Authorize(ctx context.Context, operatorID string, kind model.ResourceKind, quantity int) quota.Decision {
	granted := quantity
	if m.granted != nil {
		granted = m.granted(quantity)
	}
	return quota.Decision{Granted: granted, Remaining: 0, Authority: quota.Authoritative}
}

type MockQueue struct {
	published []string
}

func (m *MockQueue) Publish(topic string, payload any) error {
	m.published = append(m.published, payload.(string))
	return nil
}

func (m *MockQueue) Subscribe(topic string, handler func(payload any) error) error { return nil }

func newOrchestrator(campaigns *MockCampaignRepo, sends *MockSendRepo, auth *MockAuthorizer) *dispatch.Orchestrator {
	return &dispatch.Orchestrator{
		CampaignRepo:   campaigns,
		SendRepo:       sends,
		RecipientRepo:  &MockRecipientRepo{},
		ConnectionRepo: &MockConnectionRepo{},
		Quota:          auth,
		Queue:          &MockQueue{},
	}
}

// --- Tests ---

func TestSequenceCreatesRecipientTimesSteps(t *testing.T) {
	campaigns := &MockCampaignRepo{}
	sends := &MockSendRepo{}
	orchestrator := newOrchestrator(campaigns, sends, &MockAuthorizer{})

	result, err := orchestrator.Dispatch(context.Background(), dispatch.Request{
		OperatorID:   "op-1",
		RecipientIDs: []string{"A", "B", "C"},
		Steps: []dispatch.Step{
			{Text: "Hi {empresa_nome}", PhaseLabel: "phase1"},
			{Text: "Follow up", PhaseLabel: "phase2"},
		},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 30,
		Pattern:             "padarias",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ScheduledCount != 6 {
		t.Errorf("expected 6 scheduled sends, got %d", result.ScheduledCount)
	}
	if result.Estimate.Minutes != 3 {
		t.Errorf("expected 3 minute estimate, got %d", result.Estimate.Minutes)
	}

	seen := map[string]bool{}
	for _, s := range sends.sends {
		key := s.RecipientID + "#" + strconv.Itoa(s.SequenceOrder)
		if seen[key] {
			t.Errorf("duplicate (recipient, order) pair %s", key)
		}
		seen[key] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 unique pairs, got %d", len(seen))
	}

	// First step of the first recipient carries the rendered company name.
	if sends.sends[0].RenderedContent != "Hi Empresa A" {
		t.Errorf("unexpected rendered content %q", sends.sends[0].RenderedContent)
	}
}

func TestPartialQuotaTruncatesInOrder(t *testing.T) {
	campaigns := &MockCampaignRepo{}
	sends := &MockSendRepo{}
	auth := &MockAuthorizer{granted: func(quantity int) int { return 3 }}
	orchestrator := newOrchestrator(campaigns, sends, auth)

	ids := []string{"r1", "r2", "r3", "r4", "r5"}
	result, err := orchestrator.Dispatch(context.Background(), dispatch.Request{
		OperatorID:          "op-1",
		RecipientIDs:        ids,
		Steps:               []dispatch.Step{{Text: "Oi", PhaseLabel: "mensagem"}},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 60,
	})
	if err != nil {
		t.Fatalf("truncation is not an error, got: %v", err)
	}

	if !result.Limited {
		t.Error("expected limited result")
	}
	if result.ScheduledCount != 3 {
		t.Errorf("expected 3 sends, got %d", result.ScheduledCount)
	}
	for i, s := range sends.sends {
		if s.RecipientID != ids[i] {
			t.Errorf("expected input order preserved, position %d got %s", i, s.RecipientID)
		}
	}
}

func TestZeroQuotaFailsWithoutRecords(t *testing.T) {
	campaigns := &MockCampaignRepo{}
	sends := &MockSendRepo{}
	auth := &MockAuthorizer{granted: func(quantity int) int { return 0 }}
	orchestrator := newOrchestrator(campaigns, sends, auth)

	_, err := orchestrator.Dispatch(context.Background(), dispatch.Request{
		OperatorID:          "op-1",
		RecipientIDs:        []string{"r1"},
		Steps:               []dispatch.Step{{Text: "Oi"}},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 30,
	})
	if !appErrors.IsQuotaExhausted(err) {
		t.Fatalf("expected quota exhausted, got %v", err)
	}
	if len(campaigns.created) != 0 || len(sends.sends) != 0 {
		t.Error("no records may be created on zero authorization")
	}
}

func TestCampaignNamesNeverReuseSuffixes(t *testing.T) {
	campaigns := &MockCampaignRepo{}
	orchestrator := newOrchestrator(campaigns, &MockSendRepo{}, &MockAuthorizer{})

	req := dispatch.Request{
		OperatorID:          "op-1",
		RecipientIDs:        []string{"r1"},
		Steps:               []dispatch.Step{{Text: "Oi"}},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 30,
		Pattern:             "padarias",
	}

	for i, want := range []string{"Disparo padarias 1", "Disparo padarias 2", "Disparo padarias 3"} {
		result, err := orchestrator.Dispatch(context.Background(), req)
		if err != nil {
			t.Fatalf("dispatch %d: %v", i+1, err)
		}
		if result.CampaignName != want {
			t.Errorf("dispatch %d: expected %q, got %q", i+1, want, result.CampaignName)
		}
	}

	// Soft-deleting campaign 2 keeps its name reserved; the next suffix is 4.
	if err := campaigns.SoftDelete("camp-2"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	result, err := orchestrator.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CampaignName != "Disparo padarias 4" {
		t.Errorf("expected suffix 4 after deletion, got %q", result.CampaignName)
	}
}

func TestCampaignNameFillsGaps(t *testing.T) {
	campaigns := &MockCampaignRepo{names: []string{"Disparo padarias 1", "Disparo padarias 3"}}
	orchestrator := newOrchestrator(campaigns, &MockSendRepo{}, &MockAuthorizer{})

	result, err := orchestrator.Dispatch(context.Background(), dispatch.Request{
		OperatorID:          "op-1",
		RecipientIDs:        []string{"r1"},
		Steps:               []dispatch.Step{{Text: "Oi"}},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 30,
		Pattern:             "padarias",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CampaignName != "Disparo padarias 2" {
		t.Errorf("expected smallest unused suffix 2, got %q", result.CampaignName)
	}
}

func TestValidationErrors(t *testing.T) {
	orchestrator := newOrchestrator(&MockCampaignRepo{}, &MockSendRepo{}, &MockAuthorizer{})

	cases := []dispatch.Request{
		{OperatorID: "op-1", Steps: []dispatch.Step{{Text: "Oi"}}, ConnectionID: "c", DefaultDelaySeconds: 30},
		{OperatorID: "op-1", RecipientIDs: []string{"r1"}, ConnectionID: "c", DefaultDelaySeconds: 30},
		{OperatorID: "op-1", RecipientIDs: []string{"r1"}, Steps: []dispatch.Step{{Text: "  "}}, ConnectionID: "c", DefaultDelaySeconds: 30},
		{OperatorID: "op-1", RecipientIDs: []string{"r1"}, Steps: []dispatch.Step{{Text: "Oi"}}, ConnectionID: "c", DefaultDelaySeconds: 45},
	}
	for i, req := range cases {
		if _, err := orchestrator.Dispatch(context.Background(), req); !appErrors.IsValidation(err) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestPartialPersistenceKeepsCreatedRows(t *testing.T) {
	campaigns := &MockCampaignRepo{}
	sends := &MockSendRepo{failAfter: 4}
	orchestrator := newOrchestrator(campaigns, sends, &MockAuthorizer{})

	result, err := orchestrator.Dispatch(context.Background(), dispatch.Request{
		OperatorID:          "op-1",
		RecipientIDs:        []string{"A", "B", "C"},
		Steps:               []dispatch.Step{{Text: "1"}, {Text: "2"}},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 30,
	})
	if !appErrors.IsPersistencePartial(err) {
		t.Fatalf("expected persistence partial, got %v", err)
	}
	if result == nil {
		t.Fatal("partial persistence must still return the result")
	}
	if result.ScheduledCount != 4 {
		t.Errorf("expected 4 created rows reported, got %d", result.ScheduledCount)
	}
	if len(sends.sends) != 4 {
		t.Errorf("created rows must remain, got %d", len(sends.sends))
	}
}

func TestSingleMessageSchedulesImmediately(t *testing.T) {
	sends := &MockSendRepo{}
	orchestrator := newOrchestrator(&MockCampaignRepo{}, sends, &MockAuthorizer{})

	before := time.Now()
	_, err := orchestrator.Dispatch(context.Background(), dispatch.Request{
		OperatorID:          "op-1",
		RecipientIDs:        []string{"r1"},
		Steps:               []dispatch.Step{{Text: "Oi"}},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := sends.sends[0]
	if s.SequenceOrder != 1 {
		t.Errorf("single message must have order 1, got %d", s.SequenceOrder)
	}
	if s.ScheduledFor.Before(before) || s.ScheduledFor.After(time.Now().Add(time.Second)) {
		t.Errorf("single message must be scheduled for now, got %v", s.ScheduledFor)
	}
}

func TestDispatchRejectsUnpairedConnection(t *testing.T) {
	orchestrator := newOrchestrator(&MockCampaignRepo{}, &MockSendRepo{}, &MockAuthorizer{})
	orchestrator.ConnectionRepo = &MockConnectionRepo{status: model.ConnectionDisconnected}

	_, err := orchestrator.Dispatch(context.Background(), dispatch.Request{
		OperatorID:          "op-1",
		RecipientIDs:        []string{"r1"},
		Steps:               []dispatch.Step{{Text: "Oi"}},
		ConnectionID:        "conn-1",
		DefaultDelaySeconds: 30,
	})
	if !appErrors.IsValidation(err) {
		t.Fatalf("expected validation error for unpaired connection, got %v", err)
	}
}
