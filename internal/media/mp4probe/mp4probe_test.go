package mp4probe

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func box(kind string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out, uint32(8+len(body)))
	copy(out[4:], kind)
	return append(out, body...)
}

func mvhd(timescale, duration uint32) []byte {
	payload := make([]byte, 100)
	binary.BigEndian.PutUint32(payload[12:], timescale)
	binary.BigEndian.PutUint32(payload[16:], duration)
	binary.BigEndian.PutUint32(payload[20:], 0x00010000)
	binary.BigEndian.PutUint16(payload[24:], 0x0100)
	return box("mvhd", payload)
}

func container(withCover bool) []byte {
	ftyp := box("ftyp", []byte("M4A \x00\x00\x02\x00isomM4A "))
	var ilst []byte
	if withCover {
		data := box("data", []byte{0, 0, 0, 13, 0, 0, 0, 0}, []byte{0xFF, 0xD8, 0xFF, 0xE0})
		ilst = box("ilst", box("covr", data))
	} else {
		ilst = box("ilst")
	}
	meta := box("meta", []byte{0, 0, 0, 0}, ilst)
	moov := box("moov", mvhd(1000, 90500), box("udta", meta))
	return append(ftyp, moov...)
}

func TestProbeReaderFindsCoverAndDuration(t *testing.T) {
	info, err := ProbeReader(bytes.NewReader(container(true)))
	if err != nil {
		t.Fatalf("ProbeReader: %v", err)
	}
	if !info.HasCover || info.CoverBytes == 0 {
		t.Fatalf("expected cover, got %+v", info)
	}
	if info.Duration != 90500*time.Millisecond {
		t.Fatalf("duration = %v", info.Duration)
	}
}

func TestProberWithoutCover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.m4b")
	if err := os.WriteFile(path, container(false), 0o644); err != nil {
		t.Fatal(err)
	}
	has, err := Prober{}.HasCover(path)
	if err != nil || has {
		t.Fatalf("HasCover = %v, %v", has, err)
	}
}

func TestProbeMissingFile(t *testing.T) {
	if _, err := Probe(filepath.Join(t.TempDir(), "missing.m4a")); err == nil {
		t.Fatal("expected error")
	}
}
