package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/cohortdash/internal/utils"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"empty", "", 5, ""},
		{"fits", "Dopaminergic", 20, "Dopaminergic"},
		{"clipped", "Dopaminergic", 5, "Dopa…"},
		{"runes", "ääää", 3, "ää…"},
		{"one", "abc", 1, "…"},
		{"zero", "abc", 0, ""},
	}
	for _, c := range cases {
		if got := utils.Truncate(c.in, c.limit); got != c.want {
			t.Fatalf("%s: Truncate(%q,%d)=%q want %q", c.name, c.in, c.limit, got, c.want)
		}
	}
}

func TestSafeWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.yaml")
	if err := utils.SafeWriteFile(p, []byte("a: 1\n")); err != nil {
		t.Fatal(err)
	}
	if err := utils.SafeWriteFile(p, []byte("a: 2\n")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "a: 2\n" {
		t.Fatalf("unexpected content %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := utils.ExpandHome("~/data/cohort.csv")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "data", "cohort.csv") {
		t.Fatalf("got %q", got)
	}
	same, _ := utils.ExpandHome("/abs/path.csv")
	if same != "/abs/path.csv" {
		t.Fatalf("absolute path changed: %q", same)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"subjects": 3})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "\n  \"subjects\": 3") {
		t.Fatalf("not indented: %s", b)
	}
}
