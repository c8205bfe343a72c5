// Package call manages call sessions: creation with media credentials,
// transcript submission, termination, and lookup queries.
package call

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/notify"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/session"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/token"
)

// AgentAIdentity is the fixed identity the first-line agent joins with.
const AgentAIdentity = "agent_a"

type Manager struct {
	store    *session.Store
	issuer   *token.Issuer
	notifier notify.Publisher
}

func NewManager(store *session.Store, issuer *token.Issuer, notifier notify.Publisher) *Manager {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Manager{store: store, issuer: issuer, notifier: notifier}
}

// StartResult is the create response: the stored session plus the two
// credential sets needed to join the call room.
type StartResult struct {
	Call        session.Call
	CallerCreds token.Credentials
	AgentACreds token.Credentials
}

// Start creates a call session. A blank callerName gets a generated
// pseudonym so every session has a usable identity.
func (m *Manager) Start(callerName string, callerInfo map[string]string) (StartResult, error) {
	if callerName == "" {
		callerName = "caller_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	}

	callID := uuid.New().String()
	roomName := "call_" + callID

	callerCreds, err := m.issuer.Issue(callerName, roomName)
	if err != nil {
		return StartResult{}, fmt.Errorf("issue caller credentials: %w", err)
	}
	agentCreds, err := m.issuer.Issue(AgentAIdentity, roomName)
	if err != nil {
		return StartResult{}, fmt.Errorf("issue agent credentials: %w", err)
	}

	c := session.Call{
		ID:         callID,
		RoomName:   roomName,
		CallerName: callerName,
		CallerInfo: callerInfo,
		AgentA:     AgentAIdentity,
		Status:     session.CallActive,
		CreatedAt:  time.Now().UTC(),
	}
	m.store.PutCall(c)

	slog.Info("call started", "call_id", callID, "caller", callerName)
	m.notifier.Publish(notify.SubjectCallStarted, map[string]any{
		"call_id":   callID,
		"room_name": roomName,
		"caller":    callerName,
	})

	return StartResult{Call: c, CallerCreds: callerCreds, AgentACreds: agentCreds}, nil
}

// SubmitTranscript overwrites the session transcript. Last write wins;
// there is no append-merge.
func (m *Manager) SubmitTranscript(callID, transcript string) error {
	_, err := m.store.UpdateCall(callID, func(c *session.Call) {
		c.Transcript = transcript
	})
	return err
}

// End transitions the call to ended. Ending an already-ended call is a
// no-op success and leaves EndedAt untouched.
func (m *Manager) End(callID string) (session.Call, error) {
	var transitioned bool
	c, err := m.store.UpdateCall(callID, func(c *session.Call) {
		if c.Status == session.CallEnded {
			return
		}
		now := time.Now().UTC()
		c.Status = session.CallEnded
		c.EndedAt = &now
		transitioned = true
	})
	if err != nil {
		return session.Call{}, err
	}

	if transitioned {
		slog.Info("call ended", "call_id", callID)
		m.notifier.Publish(notify.SubjectCallEnded, map[string]any{"call_id": callID})
	}
	return c, nil
}

// Latest returns the most recently created call regardless of status.
// Equal timestamps break toward the lexically smaller id so the result
// is deterministic.
func (m *Manager) Latest() (session.Call, error) {
	calls := m.store.Calls()
	if len(calls) == 0 {
		return session.Call{}, session.ErrNotFound
	}

	latest := calls[0]
	for _, c := range calls[1:] {
		if c.CreatedAt.After(latest.CreatedAt) ||
			(c.CreatedAt.Equal(latest.CreatedAt) && c.ID < latest.ID) {
			latest = c
		}
	}
	return latest, nil
}

// Get returns a single call snapshot.
func (m *Manager) Get(callID string) (session.Call, error) {
	return m.store.GetCall(callID)
}

// All returns every stored call in insertion order.
func (m *Manager) All() []session.Call {
	return m.store.Calls()
}
