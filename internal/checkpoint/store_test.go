package checkpoint

import (
	"context"
	"testing"

	"github.com/yungbote/convoroute-backend/internal/convo"
	convorepo "github.com/yungbote/convoroute-backend/internal/data/repos/convo"
	"github.com/yungbote/convoroute-backend/internal/data/repos/testutil"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	log := testutil.Logger(t)
	mem, err := NewMemoryStore(log)
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	g, err := NewGormStore(log, convorepo.NewCheckpointRepo(testutil.DB(t), log))
	if err != nil {
		t.Fatalf("gorm store: %v", err)
	}
	return map[string]Store{"memory": mem, "gorm": g}
}

func TestStoreGetMissReturnsNil(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.Get(context.Background(), "acme", "missing")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if st != nil {
				t.Fatalf("expected nil on miss, got %+v", st)
			}
		})
	}
}

func TestStorePutOverwritesWholeState(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := convo.NewState("acme", "t1")
			st.AppendMessage("user", "first")
			if err := s.Put(ctx, "acme", "t1", st); err != nil {
				t.Fatalf("put: %v", err)
			}

			st.AppendMessage("assistant", "reply")
			st.Status = convo.StatusCompleted
			st.CurrentAgent = "knowledge"
			if err := s.Put(ctx, "acme", "t1", st); err != nil {
				t.Fatalf("second put: %v", err)
			}

			got, err := s.Get(ctx, "acme", "t1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(got.Messages) != 2 {
				t.Fatalf("expected 2 messages, got %d", len(got.Messages))
			}
			if got.Status != convo.StatusCompleted || got.CurrentAgent != "knowledge" {
				t.Fatalf("stale state read back: %+v", got)
			}
		})
	}
}

func TestStoreIsTenantScoped(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := convo.NewState("acme", "t1")
			if err := s.Put(ctx, "acme", "t1", st); err != nil {
				t.Fatalf("put: %v", err)
			}

			// Same thread id under another tenant must be invisible.
			other, err := s.Get(ctx, "globex", "t1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if other != nil {
				t.Fatal("cross-tenant checkpoint read")
			}
		})
	}
}

func TestArchiveKeepsCheckpoint(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := convo.NewState("acme", "t1")
			st.Status = convo.StatusCompleted
			if err := s.Put(ctx, "acme", "t1", st); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Archive(ctx, "acme", "t1", st); err != nil {
				t.Fatalf("archive: %v", err)
			}
			got, err := s.Get(ctx, "acme", "t1")
			if err != nil {
				t.Fatalf("get after archive: %v", err)
			}
			if got == nil {
				t.Fatal("archive removed the checkpoint")
			}
		})
	}
}
