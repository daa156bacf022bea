package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/slugzin/leadflow-backend/internal/model"
)

type ScheduledSendRepositoryInterface interface {
	Create(s *model.ScheduledSend) error
	GetByID(id string) (*model.ScheduledSend, error)
	ListByCampaign(campaignID string) ([]model.ScheduledSend, error)
	UpdateStatus(id string, status model.SendStatus, lastError string) error
}

type ScheduledSendRepository struct {
	DB *sql.DB
}

func (r *ScheduledSendRepository) Create(s *model.ScheduledSend) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = model.SendPending
	}

	query := `
        INSERT INTO scheduled_sends
        (id, campaign_id, recipient_id, connection_id, rendered_content, sequence_order,
         phase_label, status, last_error, retry_count, scheduled_for, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
	_, err := r.DB.Exec(
		query,
		s.ID, s.CampaignID, s.RecipientID, s.ConnectionID, s.RenderedContent, s.SequenceOrder,
		s.PhaseLabel, s.Status, s.LastError, s.RetryCount, s.ScheduledFor, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *ScheduledSendRepository) GetByID(id string) (*model.ScheduledSend, error) {
	query := `
        SELECT id, campaign_id, recipient_id, connection_id, rendered_content, sequence_order,
               phase_label, status, last_error, retry_count, scheduled_for, created_at, updated_at
        FROM scheduled_sends WHERE id=$1
    `
	var s model.ScheduledSend
	err := r.DB.QueryRow(query, id).Scan(
		&s.ID, &s.CampaignID, &s.RecipientID, &s.ConnectionID, &s.RenderedContent, &s.SequenceOrder,
		&s.PhaseLabel, &s.Status, &s.LastError, &s.RetryCount, &s.ScheduledFor, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *ScheduledSendRepository) ListByCampaign(campaignID string) ([]model.ScheduledSend, error) {
	query := `
        SELECT id, campaign_id, recipient_id, connection_id, rendered_content, sequence_order,
               phase_label, status, last_error, retry_count, scheduled_for, created_at, updated_at
        FROM scheduled_sends WHERE campaign_id=$1
        ORDER BY sequence_order, created_at
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sends := []model.ScheduledSend{}
	for rows.Next() {
		var s model.ScheduledSend
		if err := rows.Scan(
			&s.ID, &s.CampaignID, &s.RecipientID, &s.ConnectionID, &s.RenderedContent, &s.SequenceOrder,
			&s.PhaseLabel, &s.Status, &s.LastError, &s.RetryCount, &s.ScheduledFor, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sends = append(sends, s)
	}
	return sends, rows.Err()
}

func (r *ScheduledSendRepository) UpdateStatus(id string, status model.SendStatus, lastError string) error {
	query := `
        UPDATE scheduled_sends
        SET status=$1, last_error=$2,
            retry_count=retry_count + CASE WHEN $1='failed' THEN 1 ELSE 0 END,
            updated_at=NOW()
        WHERE id=$3
    `
	_, err := r.DB.Exec(query, status, lastError, id)
	return err
}

var _ ScheduledSendRepositoryInterface = (*ScheduledSendRepository)(nil)
