package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"audiomason/internal/deps"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams  []Stream  `json:"streams"`
	Chapters []Chapter `json:"chapters"`
	Format   Format    `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int         `json:"index"`
	CodecName   string      `json:"codec_name"`
	CodecType   string      `json:"codec_type"`
	Duration    string      `json:"duration"`
	SampleRate  string      `json:"sample_rate"`
	Channels    int         `json:"channels"`
	Disposition Disposition `json:"disposition"`
}

// Disposition carries the stream flags ffprobe reports.
type Disposition struct {
	AttachedPic int `json:"attached_pic"`
}

// Chapter is one chapter marker. Times are seconds encoded as strings.
type Chapter struct {
	ID        int64             `json:"id"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Tags      map[string]string `json:"tags"`
}

// Start returns the chapter start in seconds.
func (c Chapter) Start() float64 { return parseFloat(c.StartTime) }

// End returns the chapter end in seconds.
func (c Chapter) End() float64 { return parseFloat(c.EndTime) }

// Title returns the chapter title tag, if any.
func (c Chapter) Title() string { return strings.TrimSpace(c.Tags["title"]) }

// Valid reports whether both bounds parse and end follows start.
func (c Chapter) Valid() bool {
	start, end := c.Start(), c.End()
	return !math.IsNaN(start) && !math.IsNaN(end) && end > start
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	output, err := deps.Run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-show_chapters", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(output []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Chapters returns the valid chapters of path.
func Chapters(ctx context.Context, binary, path string) ([]Chapter, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return nil, err
	}
	return result.ValidChapters(), nil
}

// ValidChapters drops chapters with missing or inverted bounds.
func (r Result) ValidChapters() []Chapter {
	chapters := make([]Chapter, 0, len(r.Chapters))
	for _, c := range r.Chapters {
		if c.Valid() {
			chapters = append(chapters, c)
		}
	}
	return chapters
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// HasAttachedPicture reports whether any stream is an embedded cover image.
func (r Result) HasAttachedPicture() bool {
	for _, stream := range r.Streams {
		if stream.Disposition.AttachedPic == 1 {
			return true
		}
	}
	return false
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

// Prober reads chapters with a fixed ffprobe binary.
type Prober struct {
	Binary string
}

// Chapters returns the valid chapters of path.
func (p Prober) Chapters(ctx context.Context, path string) ([]Chapter, error) {
	return Chapters(ctx, p.Binary, path)
}
