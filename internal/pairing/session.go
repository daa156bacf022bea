// Package pairing owns the live pairing attempt for a connection: code
// issuance, the silent refresh cadence, hard expiry, and cancellation.
// One Session exists per open pairing view; the Manager guarantees that.
package pairing

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/slugzin/leadflow-backend/internal/gateway"
)

type State string

const (
	StateAwaitingCode  State = "awaiting_code"
	StateCodeDisplayed State = "code_displayed"
	StateExpired       State = "expired"
	StateConfirmed     State = "confirmed"
	StateError         State = "error"
)

// ConnectionStore persists the issued code on the connection row.
type ConnectionStore interface {
	SetPairingCode(id, code string, issuedAt time.Time) error
}

type Config struct {
	RefreshInterval time.Duration
	ExpiryInterval  time.Duration
	RequestTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RefreshInterval: 20 * time.Second,
		ExpiryInterval:  120 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}

// Snapshot is a read-only copy of the session for HTTP handlers.
type Snapshot struct {
	ConnectionID string    `json:"connection_id"`
	State        State     `json:"state"`
	Code         string    `json:"code,omitempty"`
	IssuedAt     time.Time `json:"issued_at,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

type Session struct {
	mu sync.Mutex

	connectionID  string
	technicalName string
	cfg           Config
	gateway       gateway.Client
	conns         ConnectionStore

	state     State
	code      string
	issuedAt  time.Time
	lastError string

	refreshTimer *time.Timer
	expiryTimer  *time.Timer

	// A request in flight suppresses duplicate triggers; generation marks
	// results from before a close or regenerate as stale.
	requestInFlight bool
	generation      int
	closed          bool
}

func newSession(connectionID, technicalName string, cfg Config, gw gateway.Client, conns ConnectionStore) *Session {
	s := &Session{
		connectionID:  connectionID,
		technicalName: technicalName,
		cfg:           cfg,
		gateway:       gw,
		conns:         conns,
		state:         StateAwaitingCode,
	}
	s.mu.Lock()
	s.requestCodeLocked()
	s.mu.Unlock()
	return s
}

// requestCodeLocked launches a code request unless one is already in
// flight. Caller holds s.mu.
func (s *Session) requestCodeLocked() {
	if s.closed || s.requestInFlight {
		return
	}
	s.requestInFlight = true
	generation := s.generation

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()
		code, err := s.gateway.IssuePairingCode(ctx, s.technicalName)
		s.completeRequest(generation, code, err)
	}()
}

func (s *Session) completeRequest(generation int, code gateway.PairingCode, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || generation != s.generation {
		// View closed or session restarted while the request was in
		// flight; the result must not mutate state, and the in-flight
		// flag now belongs to the newer request.
		return
	}
	s.requestInFlight = false

	if err != nil {
		s.lastError = err.Error()
		if s.state == StateCodeDisplayed {
			// Failed silent refresh. The prior code stays live; if the hard
			// expiry already passed while we were waiting, expire now,
			// otherwise keep ticking.
			if time.Now().After(s.issuedAt.Add(s.cfg.ExpiryInterval)) {
				s.expireLocked()
				return
			}
			s.armRefreshLocked()
			return
		}
		s.state = StateError
		s.stopTimersLocked()
		return
	}

	s.code = code.Code
	s.issuedAt = code.IssuedAt
	s.lastError = ""
	s.state = StateCodeDisplayed

	if persistErr := s.conns.SetPairingCode(s.connectionID, s.code, s.issuedAt); persistErr != nil {
		log.Println("⚠️ failed to persist pairing code:", persistErr)
	}

	s.armRefreshLocked()
	s.armExpiryLocked()
}

func (s *Session) armRefreshLocked() {
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	s.refreshTimer = time.AfterFunc(s.cfg.RefreshInterval, s.onRefresh)
}

func (s *Session) armExpiryLocked() {
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
	}
	s.expiryTimer = time.AfterFunc(s.cfg.ExpiryInterval, s.onExpiry)
}

func (s *Session) stopTimersLocked() {
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
		s.expiryTimer = nil
	}
}

func (s *Session) onRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateCodeDisplayed {
		return
	}
	s.requestCodeLocked()
}

func (s *Session) onExpiry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateCodeDisplayed {
		return
	}
	if s.requestInFlight {
		// A refresh is racing the deadline; its completion decides.
		return
	}
	s.expireLocked()
}

func (s *Session) expireLocked() {
	s.state = StateExpired
	s.code = ""
	s.stopTimersLocked()
}

// Regenerate re-enters AwaitingCode after an expiry or a failed first
// request. Results of any straggling request are discarded.
func (s *Session) Regenerate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.state != StateExpired && s.state != StateError) {
		return
	}
	s.generation++
	s.requestInFlight = false
	s.state = StateAwaitingCode
	s.code = ""
	s.lastError = ""
	s.requestCodeLocked()
}

// Confirm marks the pairing completed. Terminal; all timers die here.
func (s *Session) Confirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == StateConfirmed {
		return
	}
	s.generation++
	s.state = StateConfirmed
	s.stopTimersLocked()
}

// Close cancels the session. In-flight requests complete but their
// results are discarded; nothing mutates after this returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.stopTimersLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ConnectionID: s.connectionID,
		State:        s.state,
		Code:         s.code,
		LastError:    s.lastError,
	}
	if s.state == StateCodeDisplayed {
		snap.IssuedAt = s.issuedAt
		snap.ExpiresAt = s.issuedAt.Add(s.cfg.ExpiryInterval)
	}
	return snap
}
