package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
	"github.com/nerrad567/pilot-core/internal/infrastructure/database"
	"github.com/nerrad567/pilot-core/internal/manager"
	_ "github.com/nerrad567/pilot-core/migrations" // register embedded migrations
)

// openTestDB opens a migrated throwaway database.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func TestTransitions(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	seed := []Transition{
		{Controller: "diff_drive", From: "unconfigured", To: "inactive", CreatedAt: base},
		{Controller: "diff_drive", From: "inactive", To: "active", CreatedAt: base.Add(time.Second)},
		{Controller: "arm", From: "unconfigured", To: "inactive", CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range seed {
		if err := repo.CreateTransition(ctx, &seed[i]); err != nil {
			t.Fatalf("seeding transition %d: %v", i, err)
		}
		if seed[i].ID == "" {
			t.Fatal("expected generated ID")
		}
	}

	t.Run("list all most recent first", func(t *testing.T) {
		result, err := repo.ListTransitions(ctx, TransitionFilter{})
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		if result.Total != 3 || len(result.Transitions) != 3 {
			t.Fatalf("expected 3 transitions, got total=%d len=%d", result.Total, len(result.Transitions))
		}
		if result.Transitions[0].Controller != "arm" {
			t.Fatalf("expected most recent first, got %s", result.Transitions[0].Controller)
		}
	})

	t.Run("filter by controller", func(t *testing.T) {
		result, err := repo.ListTransitions(ctx, TransitionFilter{Controller: "diff_drive"})
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		if result.Total != 2 {
			t.Fatalf("expected 2 transitions, got %d", result.Total)
		}
	})

	t.Run("filter by resulting state", func(t *testing.T) {
		result, err := repo.ListTransitions(ctx, TransitionFilter{To: "active"})
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		if result.Total != 1 || result.Transitions[0].From != "inactive" {
			t.Fatalf("unexpected result: %+v", result)
		}
	})

	t.Run("pagination clamps and offsets", func(t *testing.T) {
		result, err := repo.ListTransitions(ctx, TransitionFilter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		if result.Total != 3 || len(result.Transitions) != 1 {
			t.Fatalf("expected page of 1 from 3, got total=%d len=%d", result.Total, len(result.Transitions))
		}
		if result.Limit != 1 || result.Offset != 1 {
			t.Fatalf("page metadata lost: %+v", result)
		}
	})
}

func TestSwitches(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	staged := time.Date(2026, 8, 15, 12, 0, 0, 123456000, time.UTC)
	seed := []Switch{
		{
			Started:    []string{"diff_drive"},
			Stopped:    []string{"arm"},
			Strictness: "strict",
			StartASAP:  true,
			StagedAt:   staged,
			AppliedAt:  staged.Add(10 * time.Millisecond),
		},
		{
			Started:    []string{},
			Stopped:    []string{"diff_drive"},
			Strictness: "best_effort",
			Error:      "activate refused",
			StagedAt:   staged.Add(time.Second),
			AppliedAt:  staged.Add(time.Second + 10*time.Millisecond),
		},
	}
	for i := range seed {
		if err := repo.CreateSwitch(ctx, &seed[i]); err != nil {
			t.Fatalf("seeding switch %d: %v", i, err)
		}
	}

	t.Run("round trip preserves sets and timestamps", func(t *testing.T) {
		result, err := repo.ListSwitches(ctx, SwitchFilter{Strictness: "strict"})
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		if result.Total != 1 {
			t.Fatalf("expected 1 record, got %d", result.Total)
		}
		sw := result.Switches[0]
		if len(sw.Started) != 1 || sw.Started[0] != "diff_drive" {
			t.Fatalf("started set lost: %v", sw.Started)
		}
		if len(sw.Stopped) != 1 || sw.Stopped[0] != "arm" {
			t.Fatalf("stopped set lost: %v", sw.Stopped)
		}
		if !sw.StartASAP || sw.Error != "" {
			t.Fatalf("attributes lost: %+v", sw)
		}
		if !sw.StagedAt.Equal(staged) {
			t.Fatalf("staged timestamp lost: %v", sw.StagedAt)
		}
	})

	t.Run("empty sets survive as empty", func(t *testing.T) {
		result, err := repo.ListSwitches(ctx, SwitchFilter{Strictness: "best_effort"})
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		sw := result.Switches[0]
		if sw.Started == nil || len(sw.Started) != 0 {
			t.Fatalf("expected empty started set, got %v", sw.Started)
		}
		if sw.Error != "activate refused" {
			t.Fatalf("error message lost: %q", sw.Error)
		}
	})
}

func TestRecorder(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	rec := NewRecorder(repo, nil)

	rec.RecordTransition("diff_drive", controller.StateUnconfigured, controller.StateInactive)
	rec.RecordSwitch(manager.Outcome{
		Started:    []string{"diff_drive"},
		Strictness: controller.StrictnessStrict,
		Err:        errors.New("activate refused"),
		StagedAt:   time.Now().UTC(),
		AppliedAt:  time.Now().UTC(),
	})
	rec.Close()

	ctx := context.Background()
	transitions, err := repo.ListTransitions(ctx, TransitionFilter{})
	if err != nil {
		t.Fatalf("listing transitions: %v", err)
	}
	if transitions.Total != 1 || transitions.Transitions[0].Controller != "diff_drive" {
		t.Fatalf("unexpected transitions: %+v", transitions)
	}

	switches, err := repo.ListSwitches(ctx, SwitchFilter{})
	if err != nil {
		t.Fatalf("listing switches: %v", err)
	}
	if switches.Total != 1 || switches.Switches[0].Error != "activate refused" {
		t.Fatalf("unexpected switches: %+v", switches)
	}
}
