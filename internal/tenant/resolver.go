package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	redisclient "github.com/yungbote/convoroute-backend/internal/clients/redis"
	tenantrepo "github.com/yungbote/convoroute-backend/internal/data/repos/tenant"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/apierr"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// Request carries the tenant identification material of one inbound call, in
// precedence order: bearer token, explicit header, WhatsApp business number.
type Request struct {
	Token          string
	OrgKeyHeader   string
	WhatsAppNumber string
}

type Resolver struct {
	log       *logger.Logger
	orgs      tenantrepo.OrganizationRepo
	cache     redisclient.TenantCache // optional
	jwtSecret []byte
	sf        singleflight.Group
}

func NewResolver(log *logger.Logger, orgs tenantrepo.OrganizationRepo, cache redisclient.TenantCache, jwtSecret string) (*Resolver, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if orgs == nil {
		return nil, fmt.Errorf("organization repo required")
	}
	return &Resolver{
		log:       log.With("service", "TenantResolver"),
		orgs:      orgs,
		cache:     cache,
		jwtSecret: []byte(jwtSecret),
	}, nil
}

// Resolve maps a request onto a tenant Context. Pure lookup plus an optional
// TTL-bounded cache read; no side effects on tenant state.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Context, error) {
	orgKey, err := r.orgKeyFrom(req)
	if err != nil {
		return nil, err
	}
	if orgKey == SystemTenantID {
		return System(), nil
	}

	if req.WhatsAppNumber != "" && orgKey == "" {
		org, err := r.orgs.GetByWhatsAppNumber(dbctx.New(ctx), req.WhatsAppNumber)
		if err != nil {
			return nil, apierr.TenantNotFound(fmt.Errorf("tenant lookup by whatsapp number: %w", err))
		}
		if org == nil {
			return nil, apierr.TenantNotFound(fmt.Errorf("no tenant for whatsapp number"))
		}
		return contextFor(org), nil
	}

	if orgKey == "" {
		return nil, apierr.TenantNotFound(fmt.Errorf("no tenant identification in request"))
	}

	if r.cache != nil {
		if org, cerr := r.cache.Get(ctx, orgKey); cerr != nil {
			r.log.Warn("tenant cache read failed, falling through to db", "org_key", orgKey, "error", cerr)
		} else if org != nil {
			return contextFor(org), nil
		}
	}

	// Concurrent misses for the same org collapse onto one db read.
	v, err, _ := r.sf.Do(orgKey, func() (any, error) {
		return r.orgs.GetByOrgKey(dbctx.New(ctx), orgKey)
	})
	if err != nil {
		return nil, apierr.TenantNotFound(fmt.Errorf("tenant lookup: %w", err))
	}
	org, _ := v.(*domain.Organization)
	if org == nil {
		return nil, apierr.TenantNotFound(fmt.Errorf("unknown org_key %q", orgKey))
	}
	if r.cache != nil {
		if cerr := r.cache.Set(ctx, orgKey, org); cerr != nil {
			r.log.Warn("tenant cache write failed", "org_key", orgKey, "error", cerr)
		}
	}
	return contextFor(org), nil
}

func (r *Resolver) orgKeyFrom(req Request) (string, error) {
	token := strings.TrimSpace(req.Token)
	if token != "" {
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return r.jwtSecret, nil
		})
		if err != nil {
			return "", apierr.TenantNotFound(fmt.Errorf("invalid tenant token: %w", err))
		}
		orgKey, _ := claims["org_key"].(string)
		orgKey = strings.TrimSpace(orgKey)
		if orgKey == "" {
			return "", apierr.TenantNotFound(fmt.Errorf("token missing org_key claim"))
		}
		return orgKey, nil
	}
	return strings.TrimSpace(req.OrgKeyHeader), nil
}

func contextFor(org *domain.Organization) *Context {
	id := org.ID
	return &Context{
		TenantID: org.OrgKey,
		OrgID:    &id,
		Org:      org,
		Config:   domain.DecodeOrgConfig(org.Config),
	}
}
