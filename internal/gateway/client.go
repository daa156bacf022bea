// Package gateway talks to the remote messaging gateway that holds the
// actual account sessions. Everything here is best-effort remote truth:
// the service never invents gateway state, it only copies what the
// gateway reports.
package gateway

import (
	"context"
	"time"
)

// PairingCode is one scannable code issued for an instance. Issuing a
// new code invalidates the previous one gateway-side.
type PairingCode struct {
	Code     string // base64 image or plain pairing string
	IssuedAt time.Time
}

// StateReport is the gateway's view of one instance.
type StateReport struct {
	Status        string // "open" or "closed"
	ProfileName   string
	ProfilePicURL string
	OwnerPhone    string
}

// MessageOutcome is the gateway-reported fate of one outbound message,
// keyed by the client message ID we attached when sending.
type MessageOutcome struct {
	ClientID  string
	Status    string // "sent" or "failed"
	Error     string
	Responded bool
}

type Client interface {
	IssuePairingCode(ctx context.Context, technicalName string) (PairingCode, error)
	ConnectionState(ctx context.Context, technicalName string) (StateReport, error)
	SendText(ctx context.Context, technicalName, phone, text, clientID string) error
	MessageOutcomes(ctx context.Context, technicalName string, since time.Time) ([]MessageOutcome, error)
	Logout(ctx context.Context, technicalName string) error
	DeleteInstance(ctx context.Context, technicalName string) error
}
