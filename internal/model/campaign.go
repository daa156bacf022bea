// internal/model/campaign.go
package model

import "time"

// CampaignKind distinguishes a single-message blast from an ordered sequence.
type CampaignKind string

const (
	KindSingleMessage CampaignKind = "single"
	KindSequence      CampaignKind = "sequence"
)

type Campaign struct {
	ID           string       `db:"id" json:"id"`
	OperatorID   string       `db:"operator_id" json:"operator_id"`
	Name         string       `db:"name" json:"name"`
	Kind         CampaignKind `db:"kind" json:"kind"`
	ConnectionID string       `db:"connection_id" json:"connection_id"`
	Targeted     int          `db:"targeted" json:"targeted"`
	Sent         int          `db:"sent" json:"sent"`
	Failed       int          `db:"failed" json:"failed"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time   `db:"updated_at" json:"updated_at,omitempty"`
	DeletedAt    *time.Time   `db:"deleted_at" json:"-"`
}
