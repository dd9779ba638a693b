package preset_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/preset"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := preset.NewStore(filepath.Join(t.TempDir(), "presets"))
	sel := filter.Selection{filter.Diagnosis: "PD", filter.AgeBin: "60-70"}
	p := preset.New("pd-sixties", "PD subjects aged 60-70", sel)
	if err := store.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load("pd-sixties")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != p.ID || got.Description != "PD subjects aged 60-70" {
		t.Fatalf("unexpected preset: %+v", got)
	}
	back, err := got.Selection()
	if err != nil {
		t.Fatalf("selection: %v", err)
	}
	if len(back) != 2 || back[filter.Diagnosis] != "PD" || back[filter.AgeBin] != "60-70" {
		t.Fatalf("selection mismatch: %v", back)
	}
}

func TestSaveKeepsIdentity(t *testing.T) {
	store := preset.NewStore(t.TempDir())
	first := preset.New("males", "", filter.Selection{filter.Sex: "Male"})
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}
	second := preset.New("males", "updated", filter.Selection{filter.Sex: "Male", filter.Month: "12"})
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("id changed on overwrite: %s -> %s", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed on overwrite")
	}
}

func TestListAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := preset.NewStore(dir)
	list, err := store.List()
	if err != nil || len(list) != 0 {
		t.Fatalf("empty store: %v %v", list, err)
	}
	for _, name := range []string{"b", "a"} {
		if err := store.Save(preset.New(name, "", filter.Selection{})); err != nil {
			t.Fatal(err)
		}
	}
	// Stray files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "a" || list[1].Name != "b" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := store.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("a"); !errors.Is(err, preset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete("a"); !errors.Is(err, preset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRejectsBadInput(t *testing.T) {
	store := preset.NewStore(t.TempDir())
	for _, name := range []string{"", "../escape", ".hidden", "a b"} {
		if err := store.Save(preset.New(name, "", filter.Selection{})); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
	}
	p := preset.New("odd", "", filter.Selection{})
	p.Filters = map[string]string{"colour": "red"}
	if err := store.Save(p); !errors.Is(err, filter.ErrUnknownFacet) {
		t.Fatalf("expected ErrUnknownFacet, got %v", err)
	}
}
