package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Magrawal16/moontinker/compiler"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sketches.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t)
	g, reg, text := buildProgram(t)

	if err := s.Put("blink", g, text); err != nil {
		t.Fatalf("put: %v", err)
	}
	sk, err := s.Get("blink")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sk.Name != "blink" || sk.Text != text {
		t.Errorf("sketch = %q text %q", sk.Name, sk.Text)
	}
	if sk.UpdatedAt.IsZero() {
		t.Error("updated_at not recorded")
	}

	out, err := compiler.Compile(sk.Graph, reg)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if out != text {
		t.Errorf("stored graph compiles differently:\n%s\nvs\n%s", out, text)
	}
}

func TestStoreUpsert(t *testing.T) {
	s := openTestStore(t)
	g, _, text := buildProgram(t)

	if err := s.Put("x", g, text); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("x", g, "clear display\n"); err != nil {
		t.Fatal(err)
	}
	sk, err := s.Get("x")
	if err != nil {
		t.Fatal(err)
	}
	if sk.Text != "clear display\n" {
		t.Errorf("text = %q, second put must replace", sk.Text)
	}
	names, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("names = %v, want one row", names)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("nope")
	if !errors.Is(err, ErrSketchNotFound) {
		t.Fatalf("err = %v, want ErrSketchNotFound", err)
	}
}

func TestStoreListSorted(t *testing.T) {
	s := openTestStore(t)
	g, _, text := buildProgram(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Put(name, g, text); err != nil {
			t.Fatal(err)
		}
	}
	names, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if i >= len(names) || names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	g, _, text := buildProgram(t)
	if err := s.Put("gone", g, text); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("gone"); !errors.Is(err, ErrSketchNotFound) {
		t.Fatalf("err = %v, want ErrSketchNotFound", err)
	}
	// Deleting again is a no-op.
	if err := s.Delete("gone"); err != nil {
		t.Fatal(err)
	}
}
