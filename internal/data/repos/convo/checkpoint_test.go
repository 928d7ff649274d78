package convo

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/convoroute-backend/internal/data/repos/testutil"
	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/dbctx"
)

func TestUpsertIsAtomicPerThread(t *testing.T) {
	repo := NewCheckpointRepo(testutil.DB(t), testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	first := &domain.ConversationCheckpoint{
		TenantID: "acme",
		ThreadID: "t1",
		Status:   "RUNNING",
		State:    datatypes.JSON([]byte(`{"v":1}`)),
	}
	if err := repo.Upsert(dbc, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &domain.ConversationCheckpoint{
		TenantID: "acme",
		ThreadID: "t1",
		Status:   "COMPLETED",
		State:    datatypes.JSON([]byte(`{"v":2}`)),
	}
	if err := repo.Upsert(dbc, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.Get(dbc, "acme", "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("checkpoint missing")
	}
	if got.Status != "COMPLETED" || string(got.State) != `{"v":2}` {
		t.Fatalf("stale row after upsert: status=%s state=%s", got.Status, got.State)
	}
	// Still one row per (tenant, thread).
	if got.ID != first.ID {
		t.Fatalf("upsert created a second row: %s vs %s", got.ID, first.ID)
	}
}

func TestGetScopesByTenant(t *testing.T) {
	repo := NewCheckpointRepo(testutil.DB(t), testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	if err := repo.Upsert(dbc, &domain.ConversationCheckpoint{
		TenantID: "acme", ThreadID: "t1", Status: "RUNNING",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Get(dbc, "globex", "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("cross-tenant checkpoint read")
	}
}

func TestArchiveAppends(t *testing.T) {
	repo := NewCheckpointRepo(testutil.DB(t), testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	row := &domain.ConversationCheckpoint{
		TenantID: "acme",
		ThreadID: "t1",
		Status:   "COMPLETED",
		State:    datatypes.JSON([]byte(`{"v":1}`)),
	}
	if err := repo.Upsert(dbc, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Archive(dbc, row); err != nil {
		t.Fatalf("archive: %v", err)
	}
	row.Status = "FAILED"
	if err := repo.Archive(dbc, row); err != nil {
		t.Fatalf("second archive: %v", err)
	}

	archived, err := repo.GetArchived(dbc, "acme", "t1")
	if err != nil {
		t.Fatalf("get archived: %v", err)
	}
	if len(archived) != 2 {
		t.Fatalf("expected 2 archive rows, got %d", len(archived))
	}

	// The live checkpoint row is untouched by archiving.
	live, err := repo.Get(dbc, "acme", "t1")
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if live == nil {
		t.Fatal("archive consumed the checkpoint row")
	}
}
