// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrConnectionNotFound is a sentinel error
type ErrConnectionNotFound struct {
	ConnectionID string
}

func (e *ErrConnectionNotFound) Error() string {
	return fmt.Sprintf("connection %s not found", e.ConnectionID)
}

func NewConnectionNotFound(id string) error {
	return &ErrConnectionNotFound{ConnectionID: id}
}

// ErrGatewayUnreachable wraps a gateway transport failure. Retriable.
type ErrGatewayUnreachable struct {
	Op  string
	Err error
}

func (e *ErrGatewayUnreachable) Error() string {
	return fmt.Sprintf("messaging gateway unreachable during %s: %v", e.Op, e.Err)
}

func (e *ErrGatewayUnreachable) Unwrap() error { return e.Err }

func NewGatewayUnreachable(op string, err error) error {
	return &ErrGatewayUnreachable{Op: op, Err: err}
}

func IsGatewayUnreachable(err error) bool {
	var g *ErrGatewayUnreachable
	return errors.As(err, &g)
}

// ErrQuotaExhausted means zero remaining allowance. Terminal until the
// daily reset or an upgrade; retrying does not help.
type ErrQuotaExhausted struct {
	Kind string
}

func (e *ErrQuotaExhausted) Error() string {
	return fmt.Sprintf("daily %s allowance exhausted", e.Kind)
}

func NewQuotaExhausted(kind string) error {
	return &ErrQuotaExhausted{Kind: kind}
}

func IsQuotaExhausted(err error) bool {
	var q *ErrQuotaExhausted
	return errors.As(err, &q)
}

// ErrValidation means the caller must fix its input before retrying.
type ErrValidation struct {
	Reason string
}

func (e *ErrValidation) Error() string { return "invalid request: " + e.Reason }

func NewValidation(reason string) error {
	return &ErrValidation{Reason: reason}
}

func IsValidation(err error) bool {
	var v *ErrValidation
	return errors.As(err, &v)
}

// ErrPersistencePartial reports that some scheduled sends were created
// before a failure. The created rows remain; there is no rollback.
type ErrPersistencePartial struct {
	CampaignID string
	Created    int
	Failed     int
}

func (e *ErrPersistencePartial) Error() string {
	return fmt.Sprintf("campaign %s partially persisted: %d created, %d failed", e.CampaignID, e.Created, e.Failed)
}

func NewPersistencePartial(campaignID string, created, failed int) error {
	return &ErrPersistencePartial{CampaignID: campaignID, Created: created, Failed: failed}
}

func IsPersistencePartial(err error) bool {
	var p *ErrPersistencePartial
	return errors.As(err, &p)
}
