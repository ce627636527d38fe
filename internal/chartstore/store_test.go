package chartstore

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestCreateReadWrite(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Create("|C  G\n lyric\n")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref == "" {
		t.Fatal("expected a non-empty ref")
	}

	text, err := store.Read(ref)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if text != "|C  G\n lyric\n" {
		t.Errorf("read back %q", text)
	}

	if err := store.Write(ref, "|D\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, _ = store.Read(ref)
	if text != "|D\n" {
		t.Errorf("after rewrite got %q", text)
	}
}

func TestReadMissingIsTypedError(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read("no-such-ref")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefValidationRejectsPathEscapes(t *testing.T) {
	store := newTestStore(t)

	for _, ref := range []string{"", "..", "../etc/passwd", `a\b`, "x/y"} {
		if _, err := store.Read(ref); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("Read(%q): expected ErrInvalidRef, got %v", ref, err)
		}
		if err := store.Write(ref, "x"); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("Write(%q): expected ErrInvalidRef, got %v", ref, err)
		}
	}
}

func TestDeleteAndExists(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Create("body")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !store.Exists(ref) {
		t.Fatal("expected chart to exist")
	}

	if err := store.Delete(ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Exists(ref) {
		t.Fatal("chart should be gone")
	}
	if err := store.Delete(ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestRefFromFilename(t *testing.T) {
	ref, ok := RefFromFilename("/charts/abc-123.crd")
	if !ok || ref != "abc-123" {
		t.Errorf("got (%q, %v)", ref, ok)
	}
	if _, ok := RefFromFilename("/charts/notes.txt"); ok {
		t.Error("non-chart file should not yield a ref")
	}
}
