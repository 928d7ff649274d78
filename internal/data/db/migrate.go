package db

import (
	"fmt"

	"github.com/yungbote/convoroute-backend/internal/domain"
)

func (s *Service) AutoMigrateAll() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db service not initialized")
	}
	return s.db.AutoMigrate(
		&domain.Organization{},
		&domain.AgentDefinition{},
		&domain.ConversationCheckpoint{},
		&domain.ConversationArchive{},
	)
}
