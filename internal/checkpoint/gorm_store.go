package checkpoint

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	convorepo "github.com/yungbote/convoroute-backend/internal/data/repos/convo"
	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// gormStore is the durable checkpoint store (Postgres in production, SQLite
// in development; same repo either way).
type gormStore struct {
	log  *logger.Logger
	repo convorepo.CheckpointRepo
}

func NewGormStore(log *logger.Logger, repo convorepo.CheckpointRepo) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkpoint repo required")
	}
	return &gormStore{
		log:  log.With("service", "GormCheckpointStore"),
		repo: repo,
	}, nil
}

func (s *gormStore) Get(ctx context.Context, tenantID, threadID string) (*convo.ConversationState, error) {
	row, err := s.repo.Get(dbctx.New(ctx), tenantID, threadID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return convo.DecodeState(row.State)
}

func (s *gormStore) Put(ctx context.Context, tenantID, threadID string, st *convo.ConversationState) error {
	raw, err := convo.EncodeState(st)
	if err != nil {
		return err
	}
	return s.repo.Upsert(dbctx.New(ctx), &domain.ConversationCheckpoint{
		TenantID: tenantID,
		ThreadID: threadID,
		Status:   string(st.Status),
		State:    datatypes.JSON(raw),
	})
}

func (s *gormStore) Archive(ctx context.Context, tenantID, threadID string, st *convo.ConversationState) error {
	raw, err := convo.EncodeState(st)
	if err != nil {
		return err
	}
	return s.repo.Archive(dbctx.New(ctx), &domain.ConversationCheckpoint{
		TenantID: tenantID,
		ThreadID: threadID,
		Status:   string(st.Status),
		State:    datatypes.JSON(raw),
	})
}
