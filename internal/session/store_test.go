package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPutGetCall(t *testing.T) {
	s := New()
	s.PutCall(Call{
		ID:         "c1",
		RoomName:   "call_c1",
		CallerName: "alice",
		Status:     CallActive,
		CreatedAt:  time.Now().UTC(),
	})

	c, err := s.GetCall("c1")
	if err != nil {
		t.Fatalf("expected call, got error %v", err)
	}
	if c.RoomName != "call_c1" || c.Status != CallActive {
		t.Errorf("unexpected call snapshot: %+v", c)
	}
}

func TestGetCall_NotFound(t *testing.T) {
	s := New()
	_, err := s.GetCall("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := New()
	s.PutCall(Call{ID: "c1", CallerInfo: map[string]string{"issue": "refund"}})

	c, _ := s.GetCall("c1")
	c.Transcript = "mutated"
	c.CallerInfo["issue"] = "mutated"

	again, _ := s.GetCall("c1")
	if again.Transcript != "" {
		t.Error("snapshot mutation leaked into store")
	}
	if again.CallerInfo["issue"] != "refund" {
		t.Error("caller info mutation leaked into store")
	}
}

func TestUpdateCall(t *testing.T) {
	s := New()
	s.PutCall(Call{ID: "c1", Status: CallActive})

	now := time.Now().UTC()
	c, err := s.UpdateCall("c1", func(c *Call) {
		c.Status = CallEnded
		c.EndedAt = &now
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if c.Status != CallEnded || c.EndedAt == nil {
		t.Errorf("update not reflected in snapshot: %+v", c)
	}

	if _, err := s.UpdateCall("missing", func(*Call) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferInsertionOrder(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.PutTransfer(Transfer{ID: fmt.Sprintf("t%d", i), Status: TransferBriefing})
	}

	all := s.Transfers()
	if len(all) != 5 {
		t.Fatalf("expected 5 transfers, got %d", len(all))
	}
	for i, tr := range all {
		if tr.ID != fmt.Sprintf("t%d", i) {
			t.Errorf("position %d: expected t%d, got %s", i, i, tr.ID)
		}
	}
}

func TestParticipants(t *testing.T) {
	s := New()
	if got := s.Participants("room-1"); len(got) != 0 {
		t.Errorf("expected empty list for unknown room, got %v", got)
	}

	s.SetParticipants("room-1", []string{"alice", "agent_a"})
	got := s.Participants("room-1")
	if len(got) != 2 || got[0] != "alice" {
		t.Errorf("unexpected participants: %v", got)
	}

	got[0] = "mutated"
	if s.Participants("room-1")[0] != "alice" {
		t.Error("participant list mutation leaked into store")
	}
}

// Concurrent transfer updates on one id must serialize: the status and the
// completion timestamp always change together.
func TestUpdateTransfer_ConcurrentCompletion(t *testing.T) {
	s := New()
	s.PutTransfer(Transfer{ID: "t1", Status: TransferBriefing})

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.UpdateTransfer("t1", func(tr *Transfer) {
				if tr.Status == TransferCompleted {
					return
				}
				now := time.Now().UTC()
				tr.Status = TransferCompleted
				tr.CompletedAt = &now
			})
			if err != nil {
				t.Errorf("update failed: %v", err)
			}
		}()
	}

	// Readers in parallel must never see a torn transition.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			tr, err := s.GetTransfer("t1")
			if err != nil {
				t.Errorf("get failed: %v", err)
				return
			}
			if tr.Status == TransferCompleted && tr.CompletedAt == nil {
				t.Error("observed completed transfer without CompletedAt")
				return
			}
			if tr.Status == TransferBriefing && tr.CompletedAt != nil {
				t.Error("observed briefing transfer with CompletedAt set")
				return
			}
		}
	}()

	wg.Wait()
	<-done

	tr, _ := s.GetTransfer("t1")
	if tr.Status != TransferCompleted || tr.CompletedAt == nil {
		t.Fatalf("expected completed transfer, got %+v", tr)
	}
}
