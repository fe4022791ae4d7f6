package verify_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"audiomason/internal/tags"
	"audiomason/internal/testsupport"
	"audiomason/internal/verify"
)

func tagged(path string) (tags.Metadata, error) {
	return tags.Metadata{Artist: "Author", Album: "Title"}, nil
}

func kinds(problems []verify.Problem) map[string]int {
	out := make(map[string]int)
	for _, p := range problems {
		out[p.Kind]++
	}
	return out
}

func TestLibraryCleanBook(t *testing.T) {
	root := t.TempDir()
	book := filepath.Join(root, "Author", "Title")
	for _, name := range []string{"01.mp3", "02.mp3", "cover.jpg"} {
		testsupport.WriteFile(t, filepath.Join(book, name), 16)
	}

	res, err := verify.Library(context.Background(), root, tagged)
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if res.Books != 1 || !res.OK() {
		t.Fatalf("expected one clean book, got %+v", res)
	}
}

func TestLibraryReportsProblems(t *testing.T) {
	root := t.TempDir()
	book := filepath.Join(root, "Author", "Title")
	for _, name := range []string{"01.mp3", "03.mp3"} {
		testsupport.WriteFile(t, filepath.Join(book, name), 16)
	}
	other := filepath.Join(root, "Other", "Book")
	testsupport.WriteFile(t, filepath.Join(other, "01.mp3"), 16)
	testsupport.WriteFile(t, filepath.Join(other, "cover.png"), 16)

	read := func(path string) (tags.Metadata, error) {
		switch filepath.Base(filepath.Dir(path)) {
		case "Book":
			return tags.Metadata{}, errors.New("broken frame")
		default:
			return tags.Metadata{Artist: "Author"}, nil
		}
	}
	res, err := verify.Library(context.Background(), root, read)
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if res.Books != 2 {
		t.Fatalf("books = %d, want 2", res.Books)
	}
	got := kinds(res.Problems)
	want := map[string]int{
		verify.ProblemNoCover:    1,
		verify.ProblemTags:       2,
		verify.ProblemNumbering:  1,
		verify.ProblemUnreadable: 1,
	}
	for kind, n := range want {
		if got[kind] != n {
			t.Fatalf("%s = %d, want %d (all: %+v)", kind, got[kind], n, res.Problems)
		}
	}
}

func TestDirWithoutAudioIsNotABook(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "cover.jpg"), 16)
	problems, isBook, err := verify.Dir(dir, tagged)
	if err != nil || isBook || len(problems) != 0 {
		t.Fatalf("Dir = %v, %v, %v", problems, isBook, err)
	}
}

func TestLibraryRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.mp3")
	testsupport.WriteFile(t, file, 1)
	if _, err := verify.Library(context.Background(), file, tagged); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}
