package checkpoint

import (
	"context"

	"github.com/yungbote/convoroute-backend/internal/convo"
)

// Store persists one ConversationState per (tenant_id, thread_id). Put is
// atomic per key: a reader sees either the previous full state or the new
// full state, never a partial write.
type Store interface {
	// Get returns (nil, nil) when no checkpoint exists yet.
	Get(ctx context.Context, tenantID, threadID string) (*convo.ConversationState, error)
	Put(ctx context.Context, tenantID, threadID string, st *convo.ConversationState) error
	// Archive copies a terminal state to the archive; the checkpoint row
	// itself is kept for retries.
	Archive(ctx context.Context, tenantID, threadID string, st *convo.ConversationState) error
}
