package app

import (
	"gorm.io/gorm"

	agentsrepo "github.com/yungbote/convoroute-backend/internal/data/repos/agents"
	convorepo "github.com/yungbote/convoroute-backend/internal/data/repos/convo"
	tenantrepo "github.com/yungbote/convoroute-backend/internal/data/repos/tenant"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type Repos struct {
	Organizations    tenantrepo.OrganizationRepo
	AgentDefinitions agentsrepo.DefinitionRepo
	Checkpoints      convorepo.CheckpointRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Organizations:    tenantrepo.NewOrganizationRepo(db, log),
		AgentDefinitions: agentsrepo.NewDefinitionRepo(db, log),
		Checkpoints:      convorepo.NewCheckpointRepo(db, log),
	}
}
