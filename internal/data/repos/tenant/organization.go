package tenant

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type OrganizationRepo interface {
	GetByOrgKey(dbc dbctx.Context, orgKey string) (*domain.Organization, error)
	GetByWhatsAppNumber(dbc dbctx.Context, number string) (*domain.Organization, error)
	Create(dbc dbctx.Context, rows []*domain.Organization) ([]*domain.Organization, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, log *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: log.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) GetByOrgKey(dbc dbctx.Context, orgKey string) (*domain.Organization, error) {
	orgKey = strings.TrimSpace(orgKey)
	if orgKey == "" {
		return nil, fmt.Errorf("missing org_key")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.Organization
	err := txx.WithContext(dbc.Ctx).
		Model(&domain.Organization{}).
		Where("org_key = ? AND status = ?", orgKey, "active").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *organizationRepo) GetByWhatsAppNumber(dbc dbctx.Context, number string) (*domain.Organization, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("missing whatsapp number")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.Organization
	err := txx.WithContext(dbc.Ctx).
		Model(&domain.Organization{}).
		Where("whatsapp_number = ? AND status = ?", number, "active").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *organizationRepo) Create(dbc dbctx.Context, rows []*domain.Organization) ([]*domain.Organization, error) {
	if len(rows) == 0 {
		return []*domain.Organization{}, nil
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
