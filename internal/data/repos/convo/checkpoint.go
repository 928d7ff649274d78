package convo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type CheckpointRepo interface {
	Get(dbc dbctx.Context, tenantID, threadID string) (*domain.ConversationCheckpoint, error)
	// Upsert writes the full serialized state for (tenant_id, thread_id) in a
	// single statement. Atomic per key.
	Upsert(dbc dbctx.Context, row *domain.ConversationCheckpoint) error
	Archive(dbc dbctx.Context, row *domain.ConversationCheckpoint) error
	GetArchived(dbc dbctx.Context, tenantID, threadID string) ([]*domain.ConversationArchive, error)
}

type checkpointRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckpointRepo(db *gorm.DB, log *logger.Logger) CheckpointRepo {
	return &checkpointRepo{db: db, log: log.With("repo", "CheckpointRepo")}
}

func (r *checkpointRepo) Get(dbc dbctx.Context, tenantID, threadID string) (*domain.ConversationCheckpoint, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("missing tenant_id or thread_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.ConversationCheckpoint
	err := txx.WithContext(dbc.Ctx).
		Model(&domain.ConversationCheckpoint{}).
		Where("tenant_id = ? AND thread_id = ?", tenantID, threadID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *checkpointRepo) Upsert(dbc dbctx.Context, row *domain.ConversationCheckpoint) error {
	if row == nil {
		return fmt.Errorf("missing checkpoint row")
	}
	if strings.TrimSpace(row.TenantID) == "" || strings.TrimSpace(row.ThreadID) == "" {
		return fmt.Errorf("missing tenant_id or thread_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if len(row.State) == 0 {
		row.State = datatypes.JSON([]byte("{}"))
	}
	return txx.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"state",
			"updated_at",
		}),
	}).Create(row).Error
}

func (r *checkpointRepo) Archive(dbc dbctx.Context, row *domain.ConversationCheckpoint) error {
	if row == nil {
		return fmt.Errorf("missing checkpoint row")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	arch := &domain.ConversationArchive{
		ID:         uuid.New(),
		TenantID:   row.TenantID,
		ThreadID:   row.ThreadID,
		Status:     row.Status,
		State:      row.State,
		ArchivedAt: time.Now().UTC(),
	}
	return txx.WithContext(dbc.Ctx).Create(arch).Error
}

func (r *checkpointRepo) GetArchived(dbc dbctx.Context, tenantID, threadID string) ([]*domain.ConversationArchive, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.ConversationArchive
	if err := txx.WithContext(dbc.Ctx).
		Model(&domain.ConversationArchive{}).
		Where("tenant_id = ? AND thread_id = ?", tenantID, threadID).
		Order("archived_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
