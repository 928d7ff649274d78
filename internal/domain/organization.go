package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Organization is a tenant. OrgKey is the stable external identifier carried
// in tokens and headers; WhatsAppNumber maps inbound business numbers to a
// tenant.
type Organization struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrgKey         string         `gorm:"uniqueIndex;not null;column:org_key" json:"org_key"`
	Name           string         `gorm:"not null;column:name" json:"name"`
	WhatsAppNumber string         `gorm:"column:whatsapp_number;index" json:"whatsapp_number,omitempty"`
	Status         string         `gorm:"column:status;not null;default:'active';index" json:"status"`
	Config         datatypes.JSON `gorm:"type:jsonb;column:config;not null;default:'{}'" json:"config"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Organization) TableName() string { return "organization" }

// OrgConfig is the decoded shape of Organization.Config. The orchestration
// core treats it as an opaque capability set.
type OrgConfig struct {
	EnabledDomains []string          `json:"enabled_domains,omitempty"`
	FallbackAgent  string            `json:"fallback_agent,omitempty"`
	LLMParams      map[string]string `json:"llm_params,omitempty"`
	FeatureFlags   map[string]bool   `json:"feature_flags,omitempty"`
}

func DecodeOrgConfig(raw datatypes.JSON) OrgConfig {
	var cfg OrgConfig
	if len(raw) == 0 {
		return cfg
	}
	_ = json.Unmarshal(raw, &cfg)
	return cfg
}

func EncodeOrgConfig(cfg OrgConfig) datatypes.JSON {
	b, err := json.Marshal(cfg)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
