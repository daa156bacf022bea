// internal/model/scheduled_send.go
package model

import "time"

type SendStatus string

const (
	SendPending    SendStatus = "pending"
	SendProcessing SendStatus = "processing"
	SendSent       SendStatus = "sent"
	SendFailed     SendStatus = "failed"
)

// ScheduledSend is one unit of outbound work: one recipient, one sequence step.
type ScheduledSend struct {
	ID              string     `db:"id" json:"id"`
	CampaignID      string     `db:"campaign_id" json:"campaign_id"`
	RecipientID     string     `db:"recipient_id" json:"recipient_id"`
	ConnectionID    string     `db:"connection_id" json:"connection_id"`
	RenderedContent string     `db:"rendered_content" json:"rendered_content"`
	SequenceOrder   int        `db:"sequence_order" json:"sequence_order"` // 1 for single-message campaigns
	PhaseLabel      string     `db:"phase_label" json:"phase_label"`
	Status          SendStatus `db:"status" json:"status"`
	LastError       string     `db:"last_error" json:"last_error,omitempty"`
	RetryCount      int        `db:"retry_count" json:"retry_count"`
	ScheduledFor    time.Time  `db:"scheduled_for" json:"scheduled_for"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
