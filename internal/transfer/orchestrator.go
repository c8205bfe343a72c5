// Package transfer drives warm-transfer sessions from briefing through
// completion, and serves the read-only status queries used by polling
// clients.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/notify"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/session"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/summarizer"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/token"
)

// ErrSameRoom rejects a transfer whose target room equals the original:
// that would hand the caller back into the same room under a new label.
var ErrSameRoom = errors.New("transfer room must differ from original room")

type Orchestrator struct {
	store    *session.Store
	issuer   *token.Issuer
	gateway  summarizer.Gateway
	notifier notify.Publisher
}

func NewOrchestrator(store *session.Store, issuer *token.Issuer, gateway summarizer.Gateway, notifier notify.Publisher) *Orchestrator {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Orchestrator{store: store, issuer: issuer, gateway: gateway, notifier: notifier}
}

type InitiateRequest struct {
	OriginalRoom string
	TransferRoom string
	AgentA       string
	AgentB       string
	Transcript   string
	CallerName   string
}

// InitiateResult carries the stored session plus everything the
// agent-facing client needs to run the briefing: all three credential
// sets and the generated summary and script.
type InitiateResult struct {
	Transfer    session.Transfer
	AgentACreds token.Credentials
	AgentBCreds token.Credentials
	CallerCreds token.Credentials
}

// Initiate opens a transfer session in the briefing state. Summary and
// script generation is best-effort: a gateway failure is absorbed into
// fallback text and never aborts session creation.
func (o *Orchestrator) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	if req.TransferRoom == req.OriginalRoom {
		return InitiateResult{}, ErrSameRoom
	}

	// All three credential sets are minted eagerly, caller token
	// included: its identity binding to the transfer room is fixed at
	// creation time even though it is not consumed until completion.
	agentACreds, err := o.issuer.Issue(req.AgentA, req.TransferRoom)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("issue agent A credentials: %w", err)
	}
	agentBCreds, err := o.issuer.Issue(req.AgentB, req.TransferRoom)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("issue agent B credentials: %w", err)
	}
	callerCreds, err := o.issuer.Issue(req.CallerName, req.TransferRoom)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("issue caller credentials: %w", err)
	}

	summary, script := o.brief(ctx, req)

	t := session.Transfer{
		ID:           uuid.New().String(),
		OriginalRoom: req.OriginalRoom,
		TransferRoom: req.TransferRoom,
		AgentA:       req.AgentA,
		AgentB:       req.AgentB,
		CallerName:   req.CallerName,
		Summary:      summary,
		AgentScript:  script,
		Status:       session.TransferBriefing,
		CreatedAt:    time.Now().UTC(),
	}
	o.store.PutTransfer(t)

	slog.Info("transfer initiated", "transfer_id", t.ID, "agent_a", req.AgentA, "agent_b", req.AgentB)
	o.notifier.Publish(notify.SubjectTransferInitiated, map[string]any{
		"transfer_id":   t.ID,
		"transfer_room": req.TransferRoom,
		"agent_a":       req.AgentA,
		"agent_b":       req.AgentB,
	})

	return InitiateResult{
		Transfer:    t,
		AgentACreds: agentACreds,
		AgentBCreds: agentBCreds,
		CallerCreds: callerCreds,
	}, nil
}

// brief produces the handoff summary and spoken script. The gateway is
// only consulted when there is a transcript; script generation feeds on
// the summary, so the two calls are sequential.
func (o *Orchestrator) brief(ctx context.Context, req InitiateRequest) (summary, script string) {
	if req.Transcript == "" {
		summary = "No call context available."
		script = fmt.Sprintf("Hi %s, I'm transferring %s to you. Please take over the call.", req.AgentB, req.CallerName)
		return summary, script
	}

	summary, err := o.gateway.Summarize(ctx, req.Transcript, nil)
	if err != nil {
		slog.Warn("summary generation failed, using fallback", "error", err)
		summary = fmt.Sprintf("Summary unavailable for %s; %s should brief %s verbally.", req.CallerName, req.AgentA, req.AgentB)
	}

	script, err = o.gateway.Script(ctx, summary, req.AgentB, req.CallerName)
	if err != nil {
		slog.Warn("script generation failed, using fallback", "error", err)
		script = fmt.Sprintf("Hi %s, transferring %s to you. Summary: %s", req.AgentB, req.CallerName, summary)
	}
	return summary, script
}

// CompleteResult carries the fresh caller credentials for the final move
// into the transfer room.
type CompleteResult struct {
	Transfer    session.Transfer
	CallerCreds token.Credentials
}

// Complete transitions a transfer from briefing to completed. It is
// idempotent: re-completion returns success with a freshly issued caller
// token and leaves CompletedAt untouched, which makes client-side retry
// safe. There is no rollback once completed.
func (o *Orchestrator) Complete(transferID, callerName, agentB string) (CompleteResult, error) {
	existing, err := o.store.GetTransfer(transferID)
	if err != nil {
		return CompleteResult{}, err
	}

	if callerName == "" {
		callerName = existing.CallerName
	}

	// Tokens minted at initiation may have expired or been superseded;
	// always reissue for the final move.
	creds, err := o.issuer.Issue(callerName, existing.TransferRoom)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("issue caller credentials: %w", err)
	}

	var transitioned bool
	t, err := o.store.UpdateTransfer(transferID, func(t *session.Transfer) {
		if t.Status == session.TransferCompleted {
			return
		}
		now := time.Now().UTC()
		t.Status = session.TransferCompleted
		t.CompletedAt = &now
		transitioned = true
	})
	if err != nil {
		return CompleteResult{}, err
	}

	if transitioned {
		o.recordAgentBOnCall(t)
		slog.Info("transfer completed", "transfer_id", transferID, "agent_b", t.AgentB)
		o.notifier.Publish(notify.SubjectTransferCompleted, map[string]any{
			"transfer_id": transferID,
			"final_room":  t.TransferRoom,
			"agent_b":     t.AgentB,
		})
	}

	return CompleteResult{Transfer: t, CallerCreds: creds}, nil
}

// recordAgentBOnCall sets AgentB on the originating call, when one is
// still identifiable by its room. Transfers outlive their calls, so a
// missing call is not an error.
func (o *Orchestrator) recordAgentBOnCall(t session.Transfer) {
	for _, c := range o.store.Calls() {
		if c.RoomName == t.OriginalRoom {
			o.store.UpdateCall(c.ID, func(c *session.Call) {
				c.AgentB = t.AgentB
			})
			return
		}
	}
}

// Summary is the token-free projection served to polling clients.
// Credentials are minted only by explicit initiate/complete calls, never
// handed out through passive polling.
type Summary struct {
	TransferID string                 `json:"transfer_id"`
	AgentA     string                 `json:"agent_a"`
	AgentB     string                 `json:"agent_b"`
	CallerName string                 `json:"caller_name"`
	Status     session.TransferStatus `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	Summary    string                 `json:"summary"`
}

// Active lists every transfer still in the briefing state.
func (o *Orchestrator) Active() []Summary {
	var out []Summary
	for _, t := range o.store.Transfers() {
		if t.Status != session.TransferBriefing {
			continue
		}
		out = append(out, Summary{
			TransferID: t.ID,
			AgentA:     t.AgentA,
			AgentB:     t.AgentB,
			CallerName: t.CallerName,
			Status:     t.Status,
			CreatedAt:  t.CreatedAt,
			Summary:    t.Summary,
		})
	}
	return out
}

// Get returns a full transfer snapshot. No tokens are minted.
func (o *Orchestrator) Get(transferID string) (session.Transfer, error) {
	return o.store.GetTransfer(transferID)
}

// PollResult tells a polling caller or agent where to go once their
// transfer has completed.
type PollResult struct {
	TransferID  string
	FinalRoom   string
	AgentB      string
	CallerName  string
	Credentials token.Credentials
}

// StatusForCaller scans for the first completed transfer involving the
// caller, in store insertion order, and mints a fresh token on match. A
// caller appearing in several completed transfers gets the earliest one;
// the scan order is deterministic but not prioritized.
func (o *Orchestrator) StatusForCaller(callerName string) (PollResult, bool) {
	return o.firstCompleted(func(t session.Transfer) string {
		if t.CallerName == callerName {
			return callerName
		}
		return ""
	})
}

// StatusForAgent is the agent-B counterpart of StatusForCaller.
func (o *Orchestrator) StatusForAgent(agentName string) (PollResult, bool) {
	return o.firstCompleted(func(t session.Transfer) string {
		if t.AgentB == agentName {
			return agentName
		}
		return ""
	})
}

func (o *Orchestrator) firstCompleted(match func(session.Transfer) string) (PollResult, bool) {
	for _, t := range o.store.Transfers() {
		if t.Status != session.TransferCompleted {
			continue
		}
		identity := match(t)
		if identity == "" {
			continue
		}
		creds, err := o.issuer.Issue(identity, t.TransferRoom)
		if err != nil {
			slog.Error("failed to issue polling credentials", "transfer_id", t.ID, "error", err)
			return PollResult{}, false
		}
		return PollResult{
			TransferID:  t.ID,
			FinalRoom:   t.TransferRoom,
			AgentB:      t.AgentB,
			CallerName:  t.CallerName,
			Credentials: creds,
		}, true
	}
	return PollResult{}, false
}
