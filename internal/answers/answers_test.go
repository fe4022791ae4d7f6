package answers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audiomason/internal/covers"
	"audiomason/internal/services"
)

func writeAnswers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeAnswers(t, `
sources:
  "Author - Title":
    author: Some.Author
    books:
      __ROOT_AUDIO__:
        title: Real Title
        cover: embedded
        overwrite: true
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	src := f.Source("author - title")
	if src.Author != "Some.Author" {
		t.Fatalf("case-insensitive source lookup failed: %+v", src)
	}
	book := src.Book("__ROOT_AUDIO__")
	if book.Title != "Real Title" || book.Overwrite == nil || !*book.Overwrite {
		t.Fatalf("book = %+v", book)
	}
	if choice, ok := book.CoverChoice(); !ok || choice != covers.Embedded() {
		t.Fatalf("cover = %s, %v", choice, ok)
	}
	if _, ok := src.Book("missing").CoverChoice(); ok {
		t.Fatal("missing book must have no cover answer")
	}
}

func TestLoadEmptyPathAndFile(t *testing.T) {
	f, err := Load("")
	if err != nil || f == nil || len(f.Sources) != 0 {
		t.Fatalf("empty path = %+v, %v", f, err)
	}
	f, err = Load(writeAnswers(t, ""))
	if err != nil || len(f.Sources) != 0 {
		t.Fatalf("empty file = %+v, %v", f, err)
	}
	var nilFile *File
	if nilFile.Source("x").Author != "" {
		t.Fatal("nil file must answer nothing")
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	for name, body := range map[string]string{
		"bad cover":     "sources:\n  S:\n    books:\n      B:\n        cover: sometimes\n",
		"unknown field": "sources:\n  S:\n    publisher: nope\n",
		"not yaml":      "sources: [unterminated",
	} {
		if _, err := Load(writeAnswers(t, body)); !errors.Is(err, services.ErrConfiguration) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing file err = %v", err)
	}
}
