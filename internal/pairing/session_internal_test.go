package pairing

import (
	"testing"

	"github.com/slugzin/leadflow-backend/internal/gateway"
)

// A completion from before a generation bump must not clear the
// in-flight flag owned by the request started after the bump, or two
// code requests could run concurrently.
func TestOutdatedCompletionLeavesNewerRequestInFlight(t *testing.T) {
	s := &Session{
		connectionID:  "conn-1",
		technicalName: "conta-abc",
		cfg:           DefaultConfig(),
		state:         StateAwaitingCode,
	}
	s.generation = 1
	s.requestInFlight = true

	s.completeRequest(0, gateway.PairingCode{Code: "old-code"}, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requestInFlight {
		t.Error("outdated completion cleared the newer request's in-flight flag")
	}
	if s.code != "" {
		t.Errorf("outdated completion leaked its code: %q", s.code)
	}
	if s.state != StateAwaitingCode {
		t.Errorf("outdated completion changed state to %s", s.state)
	}
}
