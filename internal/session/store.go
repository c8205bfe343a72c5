package session

import (
	"errors"
	"sync"
)

// ErrNotFound is returned for lookups of unknown call or transfer ids.
var ErrNotFound = errors.New("session not found")

// Store owns all mutable session state. Every mutation runs under the
// store lock, so a state transition (status plus timestamp) is atomic per
// id: no reader observes a completed transfer without its CompletedAt.
// Getters and list methods return value copies, never live references.
//
// State lives for the process lifetime; there is no eviction of ended
// calls or completed transfers.
type Store struct {
	mu            sync.RWMutex
	calls         map[string]*Call
	callOrder     []string
	transfers     map[string]*Transfer
	transferOrder []string
	participants  map[string][]string
}

func New() *Store {
	return &Store{
		calls:        make(map[string]*Call),
		transfers:    make(map[string]*Transfer),
		participants: make(map[string][]string),
	}
}

// PutCall stores a new call session. Ids are caller-generated UUIDs, so a
// duplicate id overwrites rather than errors; order is recorded once.
func (s *Store) PutCall(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calls[c.ID]; !ok {
		s.callOrder = append(s.callOrder, c.ID)
	}
	s.calls[c.ID] = &c
}

func (s *Store) GetCall(id string) (Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return snapshotCall(c), nil
}

// UpdateCall applies fn to the call under the store lock and returns the
// resulting snapshot.
func (s *Store) UpdateCall(id string, fn func(*Call)) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	fn(c)
	return snapshotCall(c), nil
}

// Calls returns snapshots of every call session in insertion order.
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Call, 0, len(s.callOrder))
	for _, id := range s.callOrder {
		out = append(out, snapshotCall(s.calls[id]))
	}
	return out
}

func (s *Store) CallCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}

func (s *Store) PutTransfer(t Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[t.ID]; !ok {
		s.transferOrder = append(s.transferOrder, t.ID)
	}
	s.transfers[t.ID] = &t
}

func (s *Store) GetTransfer(id string) (Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return Transfer{}, ErrNotFound
	}
	return *t, nil
}

// UpdateTransfer applies fn to the transfer under the store lock and
// returns the resulting snapshot. Concurrent updates to one id serialize
// here; this is what makes transfer completion race-free.
func (s *Store) UpdateTransfer(id string, fn func(*Transfer)) (Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return Transfer{}, ErrNotFound
	}
	fn(t)
	return *t, nil
}

// Transfers returns snapshots of every transfer session in insertion
// order. Insertion order is what makes first-completed-match identity
// scans deterministic.
func (s *Store) Transfers() []Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transfer, 0, len(s.transferOrder))
	for _, id := range s.transferOrder {
		out = append(out, *s.transfers[id])
	}
	return out
}

func (s *Store) TransferCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transfers)
}

// SetParticipants replaces the participant list for a room.
func (s *Store) SetParticipants(room string, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(ids))
	copy(cp, ids)
	s.participants[room] = cp
}

// Participants returns the last reported participant list for a room,
// empty when the room has never reported.
func (s *Store) Participants(room string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.participants[room]
	cp := make([]string, len(ids))
	copy(cp, ids)
	return cp
}

func snapshotCall(c *Call) Call {
	cp := *c
	if c.CallerInfo != nil {
		cp.CallerInfo = make(map[string]string, len(c.CallerInfo))
		for k, v := range c.CallerInfo {
			cp.CallerInfo[k] = v
		}
	}
	return cp
}
