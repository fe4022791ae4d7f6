package importer_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"
	"sync"
	"testing"

	"audiomason/internal/history"
	"audiomason/internal/media/ffprobe"
	"audiomason/internal/tags"
)

// scriptedPrompter answers Ask with the first matching scripted answer and
// falls back to the offered default. Confirm always takes the default.
type scriptedPrompter struct {
	mu        sync.Mutex
	answers   map[string]string
	questions []string
	err       error
}

func (p *scriptedPrompter) Ask(_ context.Context, question, def string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.questions = append(p.questions, question)
	if p.err != nil {
		return "", p.err
	}
	for fragment, answer := range p.answers {
		if strings.Contains(question, fragment) {
			return answer, nil
		}
	}
	return def, nil
}

func (p *scriptedPrompter) Confirm(_ context.Context, question string, def bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.questions = append(p.questions, question)
	if p.err != nil {
		return false, p.err
	}
	return def, nil
}

func (p *scriptedPrompter) asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.questions...)
}

// failingPrompter fails the test on any question.
type failingPrompter struct{ t *testing.T }

func (p failingPrompter) Ask(_ context.Context, question, _ string) (string, error) {
	p.t.Errorf("unexpected question: %q", question)
	return "", nil
}

func (p failingPrompter) Confirm(_ context.Context, question string, def bool) (bool, error) {
	p.t.Errorf("unexpected confirmation: %q", question)
	return def, nil
}

// recordingTags leaves audio bytes untouched and records what would be
// written. embedded is returned as the picture of every file.
type recordingTags struct {
	mu       sync.Mutex
	embedded []byte
	artist   string
	album    string
	covers   int
	wiped    int
}

func (r *recordingTags) ReadEmbeddedCover(string) ([]byte, string, error) {
	if len(r.embedded) == 0 {
		return nil, "", nil
	}
	return r.embedded, "image/jpeg", nil
}

func (r *recordingTags) WriteTags(_ []string, artist, album string, _ *tags.Cover) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artist, r.album = artist, album
	return nil
}

func (r *recordingTags) WriteCover(_ []string, cover *tags.Cover) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cover != nil {
		r.covers++
	}
	return nil
}

func (r *recordingTags) WipeTags([]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wiped++
	return nil
}

// copyTranscoder writes the source bytes to every output.
type copyTranscoder struct {
	transcoded []string
}

func (c *copyTranscoder) Transcode(_ context.Context, src, dst string) error {
	c.transcoded = append(c.transcoded, src)
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (c *copyTranscoder) SplitChapters(_ context.Context, src, outDir string, chapters []ffprobe.Chapter) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(chapters))
	for i := range chapters {
		path := outDir + "/" + string(rune('a'+i)) + ".mp3"
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

type staticChapters []ffprobe.Chapter

func (s staticChapters) Chapters(context.Context, string) ([]ffprobe.Chapter, error) {
	return s, nil
}

type memoryHistory struct {
	entries []history.Entry
}

func (m *memoryHistory) Record(_ context.Context, entry history.Entry) (history.Entry, error) {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memoryHistory) SeenFingerprint(_ context.Context, fp string) (history.Entry, bool, error) {
	for _, e := range m.entries {
		if e.Fingerprint == fp {
			return e, true, nil
		}
	}
	return history.Entry{}, false, nil
}

// jpegBytes returns a small decodable JPEG.
func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
