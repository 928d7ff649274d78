package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// memoryStore keeps checkpoints in process memory. Crash recovery is scoped
// to the process lifetime only; the constructor logs that loudly so the
// limitation is never silently assumed.
type memoryStore struct {
	log *logger.Logger

	mu       sync.RWMutex
	rows     map[string][]byte
	archived map[string][][]byte
}

func NewMemoryStore(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	log.Warn("using in-memory checkpoint store; conversation state will NOT survive a restart")
	return &memoryStore{
		log:      log.With("service", "MemoryCheckpointStore"),
		rows:     map[string][]byte{},
		archived: map[string][][]byte{},
	}, nil
}

func stateKey(tenantID, threadID string) string {
	return tenantID + "\x00" + threadID
}

func (s *memoryStore) Get(_ context.Context, tenantID, threadID string) (*convo.ConversationState, error) {
	s.mu.RLock()
	raw, ok := s.rows[stateKey(tenantID, threadID)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return convo.DecodeState(raw)
}

func (s *memoryStore) Put(_ context.Context, tenantID, threadID string, st *convo.ConversationState) error {
	raw, err := convo.EncodeState(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rows[stateKey(tenantID, threadID)] = raw
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Archive(_ context.Context, tenantID, threadID string, st *convo.ConversationState) error {
	raw, err := convo.EncodeState(st)
	if err != nil {
		return err
	}
	key := stateKey(tenantID, threadID)
	s.mu.Lock()
	s.archived[key] = append(s.archived[key], raw)
	s.mu.Unlock()
	return nil
}
