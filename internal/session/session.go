package session

import "time"

// CallStatus is the lifecycle state of a call session.
type CallStatus string

const (
	CallActive CallStatus = "active"
	CallEnded  CallStatus = "ended"
)

// TransferStatus is the lifecycle state of a warm transfer.
type TransferStatus string

const (
	TransferBriefing  TransferStatus = "briefing"
	TransferCompleted TransferStatus = "completed"
)

// Call is one caller/agent conversation anchored to a media room.
type Call struct {
	ID         string            `json:"call_id"`
	RoomName   string            `json:"room_name"`
	CallerName string            `json:"caller_name"`
	CallerInfo map[string]string `json:"caller_info,omitempty"`
	AgentA     string            `json:"agent_a"`
	AgentB     string            `json:"agent_b,omitempty"`
	Status     CallStatus        `json:"status"`
	Transcript string            `json:"transcript"`
	CreatedAt  time.Time         `json:"created_at"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
}

// Transfer is one warm-transfer handoff from agent A to agent B.
// OriginalRoom and TransferRoom are copied at creation time; there is no
// live back-reference to the call the transfer originated from.
type Transfer struct {
	ID           string         `json:"transfer_id"`
	OriginalRoom string         `json:"original_room"`
	TransferRoom string         `json:"transfer_room"`
	AgentA       string         `json:"agent_a"`
	AgentB       string         `json:"agent_b"`
	CallerName   string         `json:"caller_name"`
	Summary      string         `json:"summary"`
	AgentScript  string         `json:"agent_script"`
	Status       TransferStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}
