package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ConversationCheckpoint is the single logical record per (tenant_id,
// thread_id). State holds the serialized orchestrator.ConversationState; the
// row is the unit of atomic persistence.
type ConversationCheckpoint struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID string    `gorm:"not null;column:tenant_id;uniqueIndex:idx_checkpoint_tenant_thread" json:"tenant_id"`
	ThreadID string    `gorm:"not null;column:thread_id;uniqueIndex:idx_checkpoint_tenant_thread" json:"thread_id"`

	Status string         `gorm:"column:status;not null;default:'RUNNING';index" json:"status"`
	State  datatypes.JSON `gorm:"type:jsonb;column:state;not null;default:'{}'" json:"state"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (ConversationCheckpoint) TableName() string { return "conversation_checkpoint" }

// ConversationArchive keeps terminal conversations for analytics and retries.
// Rows are append-only; checkpoints are never deleted, only copied here when a
// thread reaches COMPLETED or FAILED.
type ConversationArchive struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID string    `gorm:"not null;column:tenant_id;index" json:"tenant_id"`
	ThreadID string    `gorm:"not null;column:thread_id;index" json:"thread_id"`

	Status     string         `gorm:"column:status;not null;index" json:"status"`
	State      datatypes.JSON `gorm:"type:jsonb;column:state;not null;default:'{}'" json:"state"`
	ArchivedAt time.Time      `gorm:"not null;index" json:"archived_at"`
}

func (ConversationArchive) TableName() string { return "conversation_archive" }
