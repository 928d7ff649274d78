package agents

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type DefinitionRepo interface {
	// ListForOrg returns global definitions plus the org's own, enabled only.
	// orgID nil returns just the global set (system tenant).
	ListForOrg(dbc dbctx.Context, orgID *uuid.UUID) ([]*domain.AgentDefinition, error)
	ListAll(dbc dbctx.Context, orgID *uuid.UUID) ([]*domain.AgentDefinition, error)
	Create(dbc dbctx.Context, rows []*domain.AgentDefinition) ([]*domain.AgentDefinition, error)
}

type definitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDefinitionRepo(db *gorm.DB, log *logger.Logger) DefinitionRepo {
	return &definitionRepo{db: db, log: log.With("repo", "AgentDefinitionRepo")}
}

func (r *definitionRepo) ListForOrg(dbc dbctx.Context, orgID *uuid.UUID) ([]*domain.AgentDefinition, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).
		Model(&domain.AgentDefinition{}).
		Where("enabled = ?", true)
	if orgID == nil || *orgID == uuid.Nil {
		q = q.Where("org_id IS NULL")
	} else {
		q = q.Where("org_id IS NULL OR org_id = ?", *orgID)
	}
	var out []*domain.AgentDefinition
	if err := q.Order("agent_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *definitionRepo) ListAll(dbc dbctx.Context, orgID *uuid.UUID) ([]*domain.AgentDefinition, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).Model(&domain.AgentDefinition{})
	if orgID == nil || *orgID == uuid.Nil {
		q = q.Where("org_id IS NULL")
	} else {
		q = q.Where("org_id IS NULL OR org_id = ?", *orgID)
	}
	var out []*domain.AgentDefinition
	if err := q.Order("agent_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *definitionRepo) Create(dbc dbctx.Context, rows []*domain.AgentDefinition) ([]*domain.AgentDefinition, error) {
	if len(rows) == 0 {
		return []*domain.AgentDefinition{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
