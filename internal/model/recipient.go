// internal/model/recipient.go
package model

import "time"

// Recipient status values. The capture pipeline writes "novo";
// reconciliation promotes a lead to "respondido" when the gateway
// reports a reply.
const (
	RecipientNew       = "novo"
	RecipientResponded = "respondido"
)

// Recipient is one captured business lead.
type Recipient struct {
	ID          string    `db:"id" json:"id"`
	OperatorID  string    `db:"operator_id" json:"operator_id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	Category    string    `db:"category" json:"category"`
	Website     string    `db:"website" json:"website"`
	Rating      string    `db:"rating" json:"rating"`
	ReviewCount int       `db:"review_count" json:"review_count"`
	Address     string    `db:"address" json:"address"`
	Phone       string    `db:"phone" json:"phone"`
	SearchTerm  string    `db:"search_term" json:"search_term"`
	Status      string    `db:"status" json:"status"`
	CapturedAt  time.Time `db:"captured_at" json:"captured_at"`
}
