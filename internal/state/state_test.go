package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

func openTemp(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "state.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestLoadMissingFileIsFirstRun(t *testing.T) {
	st := openTemp(t)
	doc, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.LastPhase != "" || len(doc.UpcomingPhases) != 0 || doc.Mark(CategoryFullMoon) != AlertNone {
		t.Fatalf("expected zero document, got %+v", doc)
	}
}

func TestLoadCorruptFileFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("corrupt file must degrade to empty state, got error: %v", err)
	}
	if doc.LastPhase != "" || len(doc.Alerts) != 0 {
		t.Fatalf("expected zero document, got %+v", doc)
	}

	// The next save repairs the file.
	if err := st.Save(ctx, Document{LastPhase: "Full Moon|2024-03-25"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil || got.LastPhase != "Full Moon|2024-03-25" {
		t.Fatalf("reload after repair: %+v err=%v", got, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	doc := Document{
		LastPhase:        "Full Moon|2024-03-25",
		LastSolarEclipse: "2026-08-12",
		UpcomingPhases:   []string{"New Moon|2024-04-08", "First Quarter|2024-04-15"},
	}
	doc.SetMark(CategoryFullMoon, Alert12hFired)
	doc.SetMark(CategorySolarEclipse, Alert2hFired)

	if err := st.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastPhase != doc.LastPhase || got.LastSolarEclipse != doc.LastSolarEclipse {
		t.Fatalf("fingerprints lost: %+v", got)
	}
	if len(got.UpcomingPhases) != 2 || got.UpcomingPhases[1] != "First Quarter|2024-04-15" {
		t.Fatalf("upcoming phases lost: %+v", got.UpcomingPhases)
	}
	if got.Mark(CategoryFullMoon) != Alert12hFired || got.Mark(CategorySolarEclipse) != Alert2hFired {
		t.Fatalf("alert markers lost: %+v", got.Alerts)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped on save")
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Save(context.Background(), Document{LastPhase: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	first := Document{LastPhase: "old"}
	first.SetMark(CategoryMoonPhase, Alert2hFired)
	if err := st.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Save(ctx, Document{LastPhase: "new"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastPhase != "new" || got.Mark(CategoryMoonPhase) != AlertNone {
		t.Fatalf("stale fields survived overwrite: %+v", got)
	}
}

func TestSetMarkResetDropsEntry(t *testing.T) {
	var doc Document
	doc.SetMark(CategoryLunarEclipse, Alert12hFired)
	doc.SetMark(CategoryLunarEclipse, AlertNone)
	if len(doc.Alerts) != 0 {
		t.Fatalf("reset marker kept map entry: %+v", doc.Alerts)
	}
}

func TestCloneIsolation(t *testing.T) {
	doc := Document{UpcomingPhases: []string{"a"}}
	doc.SetMark(CategoryFullMoon, Alert12hFired)

	cp := doc.Clone()
	cp.UpcomingPhases[0] = "b"
	cp.SetMark(CategoryFullMoon, Alert2hFired)

	if doc.UpcomingPhases[0] != "a" || doc.Mark(CategoryFullMoon) != Alert12hFired {
		t.Fatalf("clone shares memory with the original: %+v", doc)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}
