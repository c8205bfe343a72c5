// Package testutil provides test doubles for the external collaborators.
package testutil

import (
	"context"
	"sync"
)

// StubGateway is a thread-safe summarizer.Gateway double with call
// counters and injectable errors.
type StubGateway struct {
	mu sync.Mutex

	SummaryReply string
	ScriptReply  string
	SummarizeErr error
	ScriptErr    error

	SummarizeCalls int
	ScriptCalls    int

	LastTranscript string
	LastAgentB     string
	LastCallerName string
}

func NewStubGateway() *StubGateway {
	return &StubGateway{
		SummaryReply: "stub summary",
		ScriptReply:  "stub script",
	}
}

func (g *StubGateway) Summarize(_ context.Context, transcript string, _ map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SummarizeCalls++
	g.LastTranscript = transcript
	if g.SummarizeErr != nil {
		return "", g.SummarizeErr
	}
	return g.SummaryReply, nil
}

func (g *StubGateway) Script(_ context.Context, _ string, agentB, callerName string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ScriptCalls++
	g.LastAgentB = agentB
	g.LastCallerName = callerName
	if g.ScriptErr != nil {
		return "", g.ScriptErr
	}
	return g.ScriptReply, nil
}

func (g *StubGateway) Calls() (summarize, script int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.SummarizeCalls, g.ScriptCalls
}

// RecordingPublisher captures lifecycle events published during a test.
type RecordingPublisher struct {
	mu       sync.Mutex
	Subjects []string
}

func (p *RecordingPublisher) Publish(subject string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Subjects = append(p.Subjects, subject)
}

func (p *RecordingPublisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Subjects))
	copy(out, p.Subjects)
	return out
}
