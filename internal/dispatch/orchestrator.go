// Package dispatch turns an operator's selection into persisted
// scheduled sends under the quota gate.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/quota"
	"github.com/slugzin/leadflow-backend/internal/queue"
	"github.com/slugzin/leadflow-backend/internal/repository"
	"github.com/slugzin/leadflow-backend/internal/template"
)

// AllowedDelays are the per-message pacing options the UI offers.
var AllowedDelays = []int{30, 60, 90, 180}

// Step is one ordered message of a sequence. DelayOverride of zero means
// the campaign default applies.
type Step struct {
	Text          string `json:"text"`
	PhaseLabel    string `json:"phase_label"`
	DelayOverride int    `json:"delay_override,omitempty"`
}

type Request struct {
	OperatorID          string
	RecipientIDs        []string
	Steps               []Step
	ConnectionID        string
	DefaultDelaySeconds int
	Pattern             string // search term the selection came from, used in the campaign name
}

type Estimate struct {
	Minutes int    `json:"minutes"`
	Display string `json:"display"`
}

type Result struct {
	CampaignID     string   `json:"campaign_id"`
	CampaignName   string   `json:"campaign_name"`
	ScheduledCount int      `json:"scheduled_count"`
	Limited        bool     `json:"limited"`
	Granted        int      `json:"granted"`
	Estimate       Estimate `json:"estimate"`
}

// Authorizer is the quota gate as the orchestrator sees it: it always
// answers with a decision, never a transport error.
type Authorizer interface {
	Authorize(ctx context.Context, operatorID string, kind model.ResourceKind, quantity int) quota.Decision
}

type Orchestrator struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	SendRepo       repository.ScheduledSendRepositoryInterface
	RecipientRepo  repository.RecipientRepositoryInterface
	ConnectionRepo repository.ConnectionRepositoryInterface
	Quota          Authorizer
	Queue          queue.Queue
}

// Dispatch expands the request into one scheduled send per retained
// recipient and step. Partial quota truncates the recipient set; partial
// persistence keeps the created rows and reports the shortfall.
func (o *Orchestrator) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	connection, err := o.ConnectionRepo.GetByID(req.ConnectionID)
	if err != nil {
		return nil, err
	}
	if connection.Status != model.ConnectionConnected {
		return nil, appErrors.NewValidation("connection is not paired")
	}

	// Quota is measured in recipients, not in scheduled sends, so a
	// 3-step sequence to 10 leads costs 10.
	decision := o.Quota.Authorize(ctx, req.OperatorID, model.KindDispatch, len(req.RecipientIDs))
	if decision.Granted == 0 {
		return nil, appErrors.NewQuotaExhausted(string(model.KindDispatch))
	}

	retainedIDs := req.RecipientIDs
	limited := false
	if decision.Granted < len(req.RecipientIDs) {
		retainedIDs = req.RecipientIDs[:decision.Granted]
		limited = true
	}

	recipients, err := o.loadOrdered(req.OperatorID, retainedIDs)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, appErrors.NewValidation("no recipients found for the selection")
	}

	kind := model.KindSingleMessage
	if len(req.Steps) > 1 {
		kind = model.KindSequence
	}

	name, err := o.nextCampaignName(req.OperatorID, kind, req.Pattern)
	if err != nil {
		return nil, err
	}

	campaign := &model.Campaign{
		OperatorID:   req.OperatorID,
		Name:         name,
		Kind:         kind,
		ConnectionID: req.ConnectionID,
		Targeted:     len(recipients),
	}
	if err := o.CampaignRepo.Create(campaign); err != nil {
		return nil, err
	}

	now := time.Now()
	created := 0
	failed := 0
	for _, recipient := range recipients {
		for i, step := range req.Steps {
			order := i + 1
			send := &model.ScheduledSend{
				CampaignID:      campaign.ID,
				RecipientID:     recipient.ID,
				ConnectionID:    req.ConnectionID,
				RenderedContent: template.Render(step.Text, recipient),
				SequenceOrder:   order,
				PhaseLabel:      step.PhaseLabel,
				Status:          model.SendPending,
				ScheduledFor:    scheduledFor(now, kind, step, order, req.DefaultDelaySeconds),
			}
			if err := o.SendRepo.Create(send); err != nil {
				log.Println("⚠️ failed to create scheduled send:", err)
				failed++
				continue
			}
			created++

			if o.Queue != nil {
				if err := o.Queue.Publish("campaign_sends", send.ID); err != nil {
					log.Println("⚠️ failed to enqueue scheduled send", send.ID, ":", err)
				}
			}
		}
	}

	result := &Result{
		CampaignID:     campaign.ID,
		CampaignName:   campaign.Name,
		ScheduledCount: created,
		Limited:        limited,
		Granted:        decision.Granted,
		Estimate:       estimate(created, req.DefaultDelaySeconds),
	}

	if failed > 0 {
		// The created rows stay; the campaign is visible as partially
		// populated. No rollback.
		return result, appErrors.NewPersistencePartial(campaign.ID, created, failed)
	}
	return result, nil
}

func (o *Orchestrator) validate(req Request) error {
	if len(req.RecipientIDs) == 0 {
		return appErrors.NewValidation("recipient selection is empty")
	}
	if len(req.Steps) == 0 {
		return appErrors.NewValidation("message definition is empty")
	}
	for i, step := range req.Steps {
		if strings.TrimSpace(step.Text) == "" {
			return appErrors.NewValidation(fmt.Sprintf("step %d has no message content", i+1))
		}
	}
	for _, allowed := range AllowedDelays {
		if req.DefaultDelaySeconds == allowed {
			return nil
		}
	}
	return appErrors.NewValidation(fmt.Sprintf("delay of %ds is not one of the allowed values", req.DefaultDelaySeconds))
}

// loadOrdered fetches the leads and restores the operator's selection
// order, which the database does not preserve.
func (o *Orchestrator) loadOrdered(operatorID string, ids []string) ([]model.Recipient, error) {
	fetched, err := o.RecipientRepo.GetByIDs(operatorID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Recipient, len(fetched))
	for _, rec := range fetched {
		byID[rec.ID] = rec
	}
	ordered := make([]model.Recipient, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return ordered, nil
}

func kindLabel(kind model.CampaignKind) string {
	if kind == model.KindSequence {
		return "Sequência"
	}
	return "Disparo"
}

// nextCampaignName picks the smallest positive suffix never used for the
// prefix. Soft-deleted campaigns keep their suffix reserved.
func (o *Orchestrator) nextCampaignName(operatorID string, kind model.CampaignKind, pattern string) (string, error) {
	prefix := kindLabel(kind) + " "
	if strings.TrimSpace(pattern) != "" {
		prefix += strings.TrimSpace(pattern) + " "
	}

	names, err := o.CampaignRepo.NamesWithPrefix(operatorID, prefix)
	if err != nil {
		return "", err
	}

	used := map[int]bool{}
	for _, name := range names {
		suffix := strings.TrimPrefix(name, prefix)
		if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
			used[n] = true
		}
	}

	next := 1
	for used[next] {
		next++
	}
	return prefix + strconv.Itoa(next), nil
}

// scheduledFor is a pacing hint for the worker, not a wall-clock
// guarantee. Sequence steps get a per-step offset so orders stay sorted.
func scheduledFor(now time.Time, kind model.CampaignKind, step Step, order, defaultDelay int) time.Time {
	if kind == model.KindSingleMessage {
		return now
	}
	delay := defaultDelay
	if step.DelayOverride > 0 {
		delay = step.DelayOverride
	}
	return now.Add(time.Duration(delay*order) * time.Second)
}

func estimate(totalSends, delaySeconds int) Estimate {
	minutes := (totalSends*delaySeconds + 59) / 60
	display := fmt.Sprintf("%d min", minutes)
	if minutes >= 60 {
		hours := minutes / 60
		rem := minutes % 60
		if rem == 0 {
			display = fmt.Sprintf("%dh", hours)
		} else {
			display = fmt.Sprintf("%dh %dmin", hours, rem)
		}
	}
	return Estimate{Minutes: minutes, Display: display}
}
