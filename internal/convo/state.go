package convo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusRunning       Status = "RUNNING"
	StatusAwaitingInput Status = "AWAITING_INPUT"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RoutingDecision is one entry of the audit trail. Decision values:
// "dispatch", "reroute", "fallback", "agent_failed", "finish".
type RoutingDecision struct {
	Agent      string    `json:"agent"`
	Decision   string    `json:"decision"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConversationState is the unit of persisted work, one per (tenant_id,
// thread_id). The executor holds a transient copy during a single turn and
// must persist-then-release; nothing caches it across requests.
type ConversationState struct {
	ThreadID string `json:"thread_id"`
	TenantID string `json:"tenant_id"`

	Messages []Message `json:"messages"`

	CurrentDomain string `json:"current_domain,omitempty"`
	CurrentAgent  string `json:"current_agent,omitempty"`

	RoutingHistory []RoutingDecision `json:"routing_history,omitempty"`
	RerouteCount   int               `json:"reroute_count"`

	Status Status `json:"status"`

	// AgentData is per-agent scratch space carried across turns of a
	// multi-step flow.
	AgentData map[string]any `json:"agent_data,omitempty"`
}

func NewState(tenantID, threadID string) *ConversationState {
	return &ConversationState{
		ThreadID: threadID,
		TenantID: tenantID,
		Messages: []Message{},
		Status:   StatusRunning,
	}
}

// AppendMessage adds a turn entry. Timestamps are truncated to milliseconds in
// UTC so serialized state round-trips exactly.
func (s *ConversationState) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	})
}

func (s *ConversationState) RecordRouting(agent, decision string, confidence float64) {
	s.RoutingHistory = append(s.RoutingHistory, RoutingDecision{
		Agent:      agent,
		Decision:   decision,
		Confidence: confidence,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
	})
}

// LastUserMessage returns the content of the most recent user turn.
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}

func EncodeState(s *ConversationState) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil state")
	}
	return json.Marshal(s)
}

func DecodeState(raw []byte) (*ConversationState, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty state payload")
	}
	var s ConversationState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode conversation state: %w", err)
	}
	if strings.TrimSpace(string(s.Status)) == "" {
		s.Status = StatusRunning
	}
	return &s, nil
}
