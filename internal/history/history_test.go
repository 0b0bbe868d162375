package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/timvw/tmux-organize/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestAppendAndRecent(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Minute)
	records := []*model.JobRecord{
		{
			ID: "j-100-1", Kind: "window", TargetKey: "window/@1", SessionID: "$1",
			Status: model.JobSucceeded, Name: "api-debug",
			Provider: "anthropic", Model: "claude-haiku-4-5",
			StartedAt: base, FinishedAt: base.Add(2 * time.Second), DurationMs: 2000,
		},
		{
			ID: "j-100-2", Kind: "session", TargetKey: "session/$1", SessionID: "$1",
			Status: model.JobFailed, Reason: "summarizer timed out",
			StartedAt: base.Add(time.Second), FinishedAt: base.Add(5 * time.Second), DurationMs: 4000,
		},
		{
			ID: "j-101-1", Kind: "window", TargetKey: "window/@1", SessionID: "$1",
			Status: model.JobSuperseded, Reason: "newer job took over",
			StartedAt: base.Add(6 * time.Second), FinishedAt: base.Add(7 * time.Second), DurationMs: 1000,
		},
	}
	for _, rec := range records {
		if err := db.Append(rec); err != nil {
			t.Fatalf("Append(%s): %v", rec.ID, err)
		}
	}

	got, err := db.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2): got %d records, want 2", len(got))
	}
	if got[0].ID != "j-101-1" || got[1].ID != "j-100-2" {
		t.Errorf("Recent order: got [%s %s], want [j-101-1 j-100-2]", got[0].ID, got[1].ID)
	}
}

func TestAppendRoundtripsFields(t *testing.T) {
	db := openTestDB(t)

	started := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	rec := &model.JobRecord{
		ID:         "j-42-7",
		Kind:       "window",
		TargetKey:  "window/@9",
		SessionID:  "$2",
		Status:     model.JobSucceeded,
		Name:       "vim-config",
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		CacheHit:   true,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		DurationMs: 1500,
	}
	if err := db.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := db.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent(1): got %d records, want 1", len(got))
	}

	r := got[0]
	if r.ID != rec.ID || r.Kind != rec.Kind || r.TargetKey != rec.TargetKey || r.SessionID != rec.SessionID {
		t.Errorf("identity fields: got %+v", r)
	}
	if r.Status != model.JobSucceeded || r.Name != "vim-config" {
		t.Errorf("outcome fields: status=%q name=%q", r.Status, r.Name)
	}
	if r.Provider != "openai" || r.Model != "gpt-4o-mini" || !r.CacheHit {
		t.Errorf("summarizer fields: provider=%q model=%q cacheHit=%v", r.Provider, r.Model, r.CacheHit)
	}
	if !r.StartedAt.Equal(rec.StartedAt) || !r.FinishedAt.Equal(rec.FinishedAt) {
		t.Errorf("timestamps: started=%v finished=%v", r.StartedAt, r.FinishedAt)
	}
	if r.DurationMs != 1500 {
		t.Errorf("DurationMs: got %d, want 1500", r.DurationMs)
	}
}

func TestLastModifiedAdvancesOnAppend(t *testing.T) {
	db := openTestDB(t)

	before, err := db.LastModified()
	if err != nil {
		t.Fatalf("LastModified: %v", err)
	}
	if before != 0 {
		t.Errorf("empty log: LastModified = %d, want 0", before)
	}

	rec := &model.JobRecord{
		ID: "j-1-1", Kind: "window", TargetKey: "window/@1", SessionID: "$1",
		Status: model.JobSucceeded, Name: "n", StartedAt: time.Now(), FinishedAt: time.Now(),
	}
	if err := db.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	first, err := db.LastModified()
	if err != nil {
		t.Fatalf("LastModified: %v", err)
	}
	if first <= before {
		t.Errorf("LastModified did not advance: %d -> %d", before, first)
	}

	rec.ID = "j-1-2"
	if err := db.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	second, err := db.LastModified()
	if err != nil {
		t.Fatalf("LastModified: %v", err)
	}
	if second <= first {
		t.Errorf("LastModified did not advance: %d -> %d", first, second)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if _, err := db.Recent(10); err != nil {
		t.Fatalf("Recent after re-migrate: %v", err)
	}
}
