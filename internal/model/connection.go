// internal/model/connection.go
package model

import "time"

// ConnectionStatus is the pairing state of a messaging account.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionPairing      ConnectionStatus = "pairing"
	ConnectionConnected    ConnectionStatus = "connected"
)

type Connection struct {
	ID              string           `db:"id" json:"id"`
	OperatorID      string           `db:"operator_id" json:"operator_id"`
	DisplayName     string           `db:"display_name" json:"display_name"`
	TechnicalName   string           `db:"technical_name" json:"technical_name"`
	Status          ConnectionStatus `db:"status" json:"status"`
	PairingCode     string           `db:"pairing_code" json:"pairing_code,omitempty"`
	PairingIssuedAt *time.Time       `db:"pairing_issued_at" json:"pairing_issued_at,omitempty"`
	LastSyncedAt    *time.Time       `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}
