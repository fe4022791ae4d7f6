package covers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"audiomason/internal/services"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	webp := append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), make([]byte, 16)...)
	tests := []struct {
		name string
		data []byte
		mime string
		ext  string
	}{
		{"jpeg", jpegBytes, MIMEJPEG, ".jpg"},
		{"png", pngBytes(t, 2, 2), MIMEPNG, ".png"},
		{"webp", webp, MIMEWebP, ".webp"},
		{"html", []byte("<html><body>nope</body></html>"), "application/octet-stream", ".img"},
	}
	for _, tt := range tests {
		mime, ext := Sniff(tt.data)
		if mime != tt.mime || ext != tt.ext {
			t.Errorf("%s: Sniff = (%q, %q), want (%q, %q)", tt.name, mime, ext, tt.mime, tt.ext)
		}
	}
}

func TestDescribe(t *testing.T) {
	info, err := Describe(pngBytes(t, 3, 2))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if info.Format != "png" || info.Width != 3 || info.Height != 2 {
		t.Fatalf("info = %+v", info)
	}
	if _, err := Describe([]byte("garbage")); err == nil {
		t.Fatal("expected error for undecodable data")
	}
}

func TestChoiceJSON(t *testing.T) {
	for _, choice := range []Choice{File("/x/cover.jpg"), Embedded(), Skip()} {
		data, err := json.Marshal(choice)
		if err != nil {
			t.Fatal(err)
		}
		var back Choice
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if back != choice {
			t.Fatalf("round trip %s -> %s", choice, back)
		}
	}
	var c Choice
	if err := json.Unmarshal([]byte(`{"mode":"file"}`), &c); err == nil {
		t.Fatal("file mode without path must be rejected")
	}
	if _, err := ParseChoice("bogus"); err == nil {
		t.Fatal("expected parse error")
	}
	if got, _ := ParseChoice("file: https://x/y.jpg"); got != File("https://x/y.jpg") {
		t.Fatalf("ParseChoice = %s", got)
	}
}

func TestCacheFetchDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	payload := pngBytes(t, 1, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	cache := NewCache(t.TempDir(), srv.Client(), nil)
	url := srv.URL + "/cover"

	if _, ok := cache.Lookup(url); ok {
		t.Fatal("empty cache reported a hit")
	}
	if planned := cache.PlannedPath(url); filepath.Base(planned) != Key(url)+".img" {
		t.Fatalf("planned = %s", planned)
	}

	first, err := cache.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Base(first) != Key(url)+".png" {
		t.Fatalf("sniffed extension ignored: %s", first)
	}
	second, err := cache.Fetch(context.Background(), url)
	if err != nil || second != first {
		t.Fatalf("second fetch = %s, %v", second, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hits = %d, want 1", hits.Load())
	}
}

func TestCacheFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewCache(t.TempDir(), srv.Client(), nil).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCacheFetchRejectsOversizedDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0xFF}, 64))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cache := NewCache(dir, srv.Client(), nil)
	cache.maxBytes = 32
	_, err := cache.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if _, ok := cache.Lookup(srv.URL); ok {
		t.Fatal("truncated download was cached")
	}
}

func writeEntry(t *testing.T, dir, name string, size int, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGCByAgeThenSize(t *testing.T) {
	dir := t.TempDir()
	mb := 1024 * 1024
	ancient := writeEntry(t, dir, Key("a")+".jpg", 10, 90*24*time.Hour)
	older := writeEntry(t, dir, Key("b")+".png", mb, 3*24*time.Hour)
	newer := writeEntry(t, dir, Key("c")+".webp", mb, time.Hour)
	stranger := writeEntry(t, dir, "notes.txt", 10, 365*24*time.Hour)
	upper := writeEntry(t, dir, strings.ToUpper(Key("d"))+".jpg", 10, 365*24*time.Hour)

	result, err := GC(context.Background(), dir, 30, 1, false, nil)
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if len(result.Removed) != 2 || result.Removed[0] != ancient || result.Removed[1] != older {
		t.Fatalf("removed = %v", result.Removed)
	}
	if result.FreedBytes != int64(mb+10) || result.Kept != 1 {
		t.Fatalf("result = %+v", result)
	}
	for _, path := range []string{newer, stranger, upper} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s should survive: %v", path, err)
		}
	}
}

func TestGCDryRunKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeEntry(t, dir, Key("x")+".img", 5, 60*24*time.Hour)
	result, err := GC(context.Background(), dir, 30, 0, true, nil)
	if err != nil || len(result.Removed) != 1 {
		t.Fatalf("result = %+v, %v", result, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("dry run removed an entry")
	}
}

func TestGCMissingDir(t *testing.T) {
	result, err := GC(context.Background(), filepath.Join(t.TempDir(), "nope"), 1, 1, false, nil)
	if err != nil || len(result.Removed) != 0 {
		t.Fatalf("result = %+v, %v", result, err)
	}
}

type fakeEmbedded struct{ data []byte }

func (f fakeEmbedded) ReadEmbeddedCover(string) ([]byte, string, error) {
	return f.data, "", nil
}

type fakeExtractor struct{ calls int }

func (f *fakeExtractor) ExtractCover(_ context.Context, _, dst string) error {
	f.calls++
	return os.WriteFile(dst, jpegBytes, 0o644)
}

func (f *fakeExtractor) ConvertImage(_ context.Context, _, dst string) error {
	f.calls++
	return os.WriteFile(dst, jpegBytes, 0o644)
}

func bookTree(t *testing.T, coverName string) (stage, book string) {
	t.Helper()
	stage = t.TempDir()
	book = filepath.Join(stage, "Book")
	if err := os.MkdirAll(book, 0o755); err != nil {
		t.Fatal(err)
	}
	if coverName != "" {
		if err := os.WriteFile(filepath.Join(book, coverName), jpegBytes, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return stage, book
}

func TestFindFileCoverPrefersBookDir(t *testing.T) {
	stage, book := bookTree(t, "")
	rootCover := filepath.Join(stage, "cover.png")
	if err := os.WriteFile(rootCover, jpegBytes, 0o644); err != nil {
		t.Fatal(err)
	}
	if got, ok := FindFileCover(book, stage); !ok || got != rootCover {
		t.Fatalf("root fallback = %q, %v", got, ok)
	}
	bookCover := filepath.Join(book, "cover.webp")
	if err := os.WriteFile(bookCover, jpegBytes, 0o644); err != nil {
		t.Fatal(err)
	}
	if got, _ := FindFileCover(book, stage); got != bookCover {
		t.Fatalf("book cover = %q", got)
	}
}

func TestResolveRefusesConflictWithoutDecision(t *testing.T) {
	stage, book := bookTree(t, "cover.jpg")
	r := &Resolver{Embedded: fakeEmbedded{data: pngBytes(t, 1, 1)}}
	c := r.Candidates(book, stage, filepath.Join(book, "01.mp3"), "")
	if !c.Conflict() {
		t.Fatalf("expected conflict, got %+v", c)
	}

	_, err := r.Resolve(context.Background(), c, Choice{}, t.TempDir())
	if !errors.Is(err, ErrDecisionRequired) {
		t.Fatalf("err = %v", err)
	}

	img, err := r.Resolve(context.Background(), c, Embedded(), t.TempDir())
	if err != nil || img.Origin != OriginEmbedded || img.MIME != MIMEPNG {
		t.Fatalf("embedded = %+v, %v", img, err)
	}
	img, err = r.Resolve(context.Background(), c, File(c.File), t.TempDir())
	if err != nil || img.Origin != OriginFile || !bytes.Equal(img.Data, jpegBytes) {
		t.Fatalf("file = %+v, %v", img, err)
	}
}

func TestResolveMissingRecordedFileFails(t *testing.T) {
	stage, book := bookTree(t, "")
	r := &Resolver{Embedded: fakeEmbedded{data: pngBytes(t, 1, 1)}}
	c := r.Candidates(book, stage, filepath.Join(book, "01.mp3"), "")

	img, err := r.Resolve(context.Background(), c, File(filepath.Join(book, "gone.jpg")), t.TempDir())
	if !errors.Is(err, services.ErrNotFound) || img != nil {
		t.Fatalf("resolve = %+v, %v; want not-found error", img, err)
	}
}

func TestResolveEmbeddedOnlyIsDeterministic(t *testing.T) {
	stage, book := bookTree(t, "")
	embedded := pngBytes(t, 2, 2)
	r := &Resolver{Embedded: fakeEmbedded{data: embedded}}
	c := r.Candidates(book, stage, filepath.Join(book, "01.mp3"), "")

	for range 2 {
		img, err := r.Resolve(context.Background(), c, Choice{}, t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(img.Data, embedded) {
			t.Fatal("embedded bytes differ")
		}
	}
}

func TestResolveContainerAndConversion(t *testing.T) {
	stage, book := bookTree(t, "")
	extractor := &fakeExtractor{}
	r := &Resolver{Extractor: extractor}

	c := r.Candidates(book, stage, "", filepath.Join(book, "book.m4b"))
	img, err := r.Resolve(context.Background(), c, Choice{}, t.TempDir())
	if err != nil || img == nil || img.Origin != OriginContainer {
		t.Fatalf("container = %+v, %v", img, err)
	}

	webp := filepath.Join(book, "art.webp")
	if err := os.WriteFile(webp, append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), make([]byte, 16)...), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err = r.Resolve(context.Background(), Candidates{}, File(webp), t.TempDir())
	if err != nil || img.MIME != MIMEJPEG {
		t.Fatalf("converted = %+v, %v", img, err)
	}
	if extractor.calls != 2 {
		t.Fatalf("extractor calls = %d", extractor.calls)
	}
}

func TestResolveSkipAndNothing(t *testing.T) {
	r := &Resolver{}
	if img, err := r.Resolve(context.Background(), Candidates{}, Skip(), ""); img != nil || err != nil {
		t.Fatalf("skip = %+v, %v", img, err)
	}
	if img, err := r.Resolve(context.Background(), Candidates{}, Choice{}, ""); img != nil || err != nil {
		t.Fatalf("nothing = %+v, %v", img, err)
	}
}

func TestSaveUsesMIMEExtension(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, &Image{Data: []byte("x"), MIME: MIMEPNG})
	if err != nil || filepath.Base(path) != "cover.png" {
		t.Fatalf("Save = %s, %v", path, err)
	}
}
