package domain

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ID assignment happens in code rather than via database defaults so the same
// models work on Postgres and SQLite.

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (a *AgentDefinition) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if len(a.CapabilityRequirements) == 0 {
		a.CapabilityRequirements = []byte("[]")
	}
	return nil
}

func (c *ConversationCheckpoint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *ConversationArchive) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
