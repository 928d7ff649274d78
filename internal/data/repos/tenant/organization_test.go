package tenant

import (
	"context"
	"testing"

	"github.com/yungbote/convoroute-backend/internal/data/repos/testutil"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
)

func TestGetByOrgKey(t *testing.T) {
	repo := NewOrganizationRepo(testutil.DB(t), testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	_, err := repo.Create(dbc, []*domain.Organization{
		{OrgKey: "acme", Name: "Acme Inc", Status: "active"},
		{OrgKey: "globex", Name: "Globex", Status: "suspended"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	org, err := repo.GetByOrgKey(dbc, "acme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if org == nil || org.Name != "Acme Inc" {
		t.Fatalf("unexpected org %+v", org)
	}

	// Suspended orgs never resolve.
	org, err = repo.GetByOrgKey(dbc, "globex")
	if err != nil {
		t.Fatalf("get suspended: %v", err)
	}
	if org != nil {
		t.Fatal("suspended org resolved")
	}

	// Unknown keys are a miss, not an error.
	org, err = repo.GetByOrgKey(dbc, "nope")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	if org != nil {
		t.Fatal("unknown org resolved")
	}
}

func TestGetByWhatsAppNumber(t *testing.T) {
	repo := NewOrganizationRepo(testutil.DB(t), testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	_, err := repo.Create(dbc, []*domain.Organization{
		{OrgKey: "acme", Name: "Acme Inc", Status: "active", WhatsAppNumber: "+5215550000000"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	org, err := repo.GetByWhatsAppNumber(dbc, "+5215550000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if org == nil || org.OrgKey != "acme" {
		t.Fatalf("unexpected org %+v", org)
	}

	if org, _ := repo.GetByWhatsAppNumber(dbc, "+10000000000"); org != nil {
		t.Fatal("unknown number resolved")
	}
}
