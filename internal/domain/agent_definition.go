package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AgentDefinition is a registry entry. OrgID nil means global (available to
// every tenant). Admin CRUD owns writes; the orchestration core only reads.
type AgentDefinition struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID       *uuid.UUID `gorm:"type:uuid;column:org_id;uniqueIndex:idx_agent_key_org" json:"org_id,omitempty"`
	AgentKey    string     `gorm:"not null;column:agent_key;uniqueIndex:idx_agent_key_org" json:"agent_key"`
	DisplayName string     `gorm:"not null;column:display_name" json:"display_name"`
	Domain      string     `gorm:"column:domain;index" json:"domain,omitempty"`
	Enabled     bool       `gorm:"column:enabled;not null;default:true;index" json:"enabled"`

	// e.g. ["needs_vector_store","needs_llm"]
	CapabilityRequirements datatypes.JSON `gorm:"type:jsonb;column:capability_requirements;not null;default:'[]'" json:"capability_requirements"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AgentDefinition) TableName() string { return "agent_definition" }
