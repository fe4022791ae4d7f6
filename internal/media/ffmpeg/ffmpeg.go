// Package ffmpeg runs the ffmpeg invocations an import needs: mp3
// transcoding, chapter splitting, and cover frame extraction.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"audiomason/internal/deps"
	"audiomason/internal/media/ffprobe"
)

// loudnormFilter normalizes to -16 LUFS, the common audiobook target.
const loudnormFilter = "loudnorm=I=-16:LRA=11:TP=-1.5"

// Options configures the encoder.
type Options struct {
	Binary   string
	LogLevel string
	// Quality is the libmp3lame VBR quality, 0 (best) to 9.
	Quality  int
	Loudnorm bool
}

type runFunc func(ctx context.Context, tool string, args ...string) ([]byte, error)

// Tool wraps the ffmpeg binary.
type Tool struct {
	opts Options
	run  runFunc
}

// New returns a Tool for opts.
func New(opts Options) *Tool {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.LogLevel == "" {
		opts.LogLevel = "warning"
	}
	return &Tool{opts: opts, run: deps.Run}
}

func (t *Tool) input(src string) []string {
	return []string{"-hide_banner", "-nostdin", "-loglevel", t.opts.LogLevel, "-y", "-i", src}
}

func (t *Tool) encode(dst string) []string {
	var args []string
	if t.opts.Loudnorm {
		args = append(args, "-af", loudnormFilter)
	}
	return append(args, "-codec:a", "libmp3lame", "-q:a", strconv.Itoa(t.opts.Quality), dst)
}

// Transcode converts src into an mp3 at dst, dropping any video streams.
func (t *Tool) Transcode(ctx context.Context, src, dst string) error {
	args := append(t.input(src), "-vn")
	args = append(args, t.encode(dst)...)
	if _, err := t.run(ctx, t.opts.Binary, args...); err != nil {
		return fmt.Errorf("transcode %s: %w", filepath.Base(src), err)
	}
	return nil
}

// SplitChapters encodes one mp3 per chapter into outDir, named 01.mp3,
// 02.mp3, and so on. Empty outputs are dropped from the result.
func (t *Tool) SplitChapters(ctx context.Context, src, outDir string, chapters []ffprobe.Chapter) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create split dir: %w", err)
	}
	produced := make([]string, 0, len(chapters))
	for i, chapter := range chapters {
		dst := filepath.Join(outDir, fmt.Sprintf("%02d.mp3", i+1))
		args := append(t.input(src), "-vn",
			"-ss", chapter.StartTime,
			"-to", chapter.EndTime,
		)
		args = append(args, t.encode(dst)...)
		if _, err := t.run(ctx, t.opts.Binary, args...); err != nil {
			return produced, fmt.Errorf("split %s chapter %d: %w", filepath.Base(src), i+1, err)
		}
		if info, err := os.Stat(dst); err == nil && info.Size() > 0 {
			produced = append(produced, dst)
		}
	}
	return produced, nil
}

// ExtractCover writes the first picture stream of container to dst as JPEG.
func (t *Tool) ExtractCover(ctx context.Context, container, dst string) error {
	args := append(t.input(container), "-an", "-map", "0:v:0", "-frames:v", "1", "-update", "1", "-pix_fmt", "yuv420p", dst)
	if _, err := t.run(ctx, t.opts.Binary, args...); err != nil {
		return fmt.Errorf("extract cover from %s: %w", filepath.Base(container), err)
	}
	return nil
}

// ConvertImage re-encodes an image file as JPEG.
func (t *Tool) ConvertImage(ctx context.Context, src, dst string) error {
	args := append(t.input(src), "-frames:v", "1", "-update", "1", "-pix_fmt", "yuv420p", dst)
	if _, err := t.run(ctx, t.opts.Binary, args...); err != nil {
		return fmt.Errorf("convert cover %s: %w", filepath.Base(src), err)
	}
	return nil
}
