package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audiomason/internal/media/ffprobe"
)

type recorder struct {
	calls [][]string
}

// run records the call and writes a non-empty file at the last argument.
func (r *recorder) run(_ context.Context, tool string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{tool}, args...))
	dst := args[len(args)-1]
	return nil, os.WriteFile(dst, []byte("mp3"), 0o644)
}

func newTool(opts Options) (*Tool, *recorder) {
	rec := &recorder{}
	tool := New(opts)
	tool.run = rec.run
	return tool, rec
}

func TestTranscodeArgs(t *testing.T) {
	tool, rec := newTool(Options{Quality: 4, Loudnorm: true})
	dst := filepath.Join(t.TempDir(), "01.mp3")
	if err := tool.Transcode(context.Background(), "in.m4a", dst); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(rec.calls[0], " ")
	want := "ffmpeg -hide_banner -nostdin -loglevel warning -y -i in.m4a -vn -af " + loudnormFilter + " -codec:a libmp3lame -q:a 4 " + dst
	if got != want {
		t.Fatalf("args:\n got %s\nwant %s", got, want)
	}
}

func TestSplitChapters(t *testing.T) {
	tool, rec := newTool(Options{Quality: 2})
	out := filepath.Join(t.TempDir(), "split")
	chapters := []ffprobe.Chapter{
		{StartTime: "0", EndTime: "10"},
		{StartTime: "10", EndTime: "20.5"},
	}
	produced, err := tool.SplitChapters(context.Background(), "book.m4b", out, chapters)
	if err != nil {
		t.Fatal(err)
	}
	if len(produced) != 2 || filepath.Base(produced[1]) != "02.mp3" {
		t.Fatalf("produced = %v", produced)
	}
	second := strings.Join(rec.calls[1], " ")
	if !strings.Contains(second, "-ss 10 -to 20.5") || strings.Contains(second, "loudnorm") {
		t.Fatalf("second call = %s", second)
	}
}

func TestExtractCoverMapsFirstVideoStream(t *testing.T) {
	tool, rec := newTool(Options{LogLevel: "error"})
	dst := filepath.Join(t.TempDir(), "cover.jpg")
	if err := tool.ExtractCover(context.Background(), "book.m4b", dst); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(rec.calls[0], " ")
	if !strings.Contains(got, "-loglevel error") || !strings.Contains(got, "-an -map 0:v:0 -frames:v 1") {
		t.Fatalf("args = %s", got)
	}
}
