package tags

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// silentFrame is an MPEG-1 Layer III frame header followed by padding, enough
// for the tag readers to treat the file as mp3 audio.
var silentFrame = append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...)

func writeMP3(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat(silentFrame, 3), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteTagsAndRead(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeMP3(t, dir, "01.mp3"), writeMP3(t, dir, "02.mp3")}
	cover := &Cover{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}, MIME: "image/jpeg"}

	if err := WriteTags(files, "Capek.Karel", "Valka s mloky", cover); err != nil {
		t.Fatalf("WriteTags: %v", err)
	}

	meta, err := Read(files[1])
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if meta.Artist != "Capek.Karel" || meta.Album != "Valka s mloky" || meta.Title != "02" {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.Track != 2 || meta.Total != 2 {
		t.Fatalf("track = %d/%d", meta.Track, meta.Total)
	}

	data, mime, err := ReadEmbeddedCover(files[0])
	if err != nil || mime != "image/jpeg" || !bytes.Equal(data, cover.Data) {
		t.Fatalf("cover = %v %q %v", data, mime, err)
	}
}

func TestWriteTagsWithoutCoverKeepsPicture(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeMP3(t, dir, "01.mp3")}
	cover := &Cover{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 9, 9}, MIME: "image/jpeg"}
	if err := WriteCover(files, cover); err != nil {
		t.Fatalf("WriteCover: %v", err)
	}
	if err := WriteTags(files, "A", "B", nil); err != nil {
		t.Fatalf("WriteTags: %v", err)
	}
	data, _, err := ReadEmbeddedCover(files[0])
	if err != nil || !bytes.Equal(data, cover.Data) {
		t.Fatalf("cover after tagging = %v, %v", data, err)
	}
	if meta, err := Read(files[0]); err != nil || meta.Artist != "A" {
		t.Fatalf("meta = %+v, %v", meta, err)
	}
}

func TestWipeTagsRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeMP3(t, dir, "01.mp3")}
	if err := WriteTags(files, "A", "B", &Cover{Data: []byte{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if err := WipeTags(files); err != nil {
		t.Fatalf("WipeTags: %v", err)
	}
	data, _, err := ReadEmbeddedCover(files[0])
	if err != nil || data != nil {
		t.Fatalf("cover after wipe = %v, %v", data, err)
	}
	meta, err := Read(files[0])
	if err != nil || meta.Artist != "" {
		t.Fatalf("meta after wipe = %+v, %v", meta, err)
	}
}

func TestEditRejectsNonMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.m4a")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WipeTags([]string{path}); err == nil {
		t.Fatal("expected error for m4a")
	}
}

func TestReadUntaggedFile(t *testing.T) {
	path := writeMP3(t, t.TempDir(), "01.mp3")
	data, _, err := ReadEmbeddedCover(path)
	if err != nil || data != nil {
		t.Fatalf("untagged cover = %v, %v", data, err)
	}
}
