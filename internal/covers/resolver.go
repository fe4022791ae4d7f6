package covers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"audiomason/internal/logging"
	"audiomason/internal/services"
)

// ErrDecisionRequired is returned when a file cover and an embedded cover
// are both available and no Choice has been recorded.
var ErrDecisionRequired = errors.New("cover decision required: file and embedded covers both present")

// fileCoverExts lists accepted cover file extensions in lookup order.
var fileCoverExts = []string{".jpg", ".jpeg", ".png", ".webp", ".avif"}

// Origin names where resolved cover bytes came from.
type Origin string

const (
	OriginNone      Origin = "none"
	OriginFile      Origin = "file"
	OriginEmbedded  Origin = "embedded"
	OriginContainer Origin = "container"
	OriginURL       Origin = "url"
)

// Image is resolved cover art ready to be written and embedded.
type Image struct {
	Data   []byte
	MIME   string
	Origin Origin
	// Path is the file the bytes were read from, when there is one.
	Path string
}

// EmbeddedReader extracts a picture already embedded in an audio file.
// It returns nil data when the file has no picture.
type EmbeddedReader interface {
	ReadEmbeddedCover(path string) (data []byte, mime string, err error)
}

// Extractor produces JPEG covers through an external media tool.
type Extractor interface {
	ExtractCover(ctx context.Context, container, dst string) error
	ConvertImage(ctx context.Context, src, dst string) error
}

// ContainerProbe reports whether a container file carries cover art.
type ContainerProbe interface {
	HasCover(path string) (bool, error)
}

// Candidates lists the cover sources available for one book.
type Candidates struct {
	File      string
	Embedded  *Image
	Container string
}

// Conflict reports whether both a file and an embedded cover exist.
func (c Candidates) Conflict() bool {
	return c.File != "" && c.Embedded != nil
}

// Any reports whether any automatic source is available.
func (c Candidates) Any() bool {
	return c.File != "" || c.Embedded != nil || c.Container != ""
}

// Plan is the source a Resolve call will read from.
type Plan struct {
	Origin Origin
	Path   string
}

func (p Plan) String() string {
	if p.Path == "" {
		return string(p.Origin)
	}
	return string(p.Origin) + ":" + p.Path
}

// Resolver selects and loads cover art for books.
type Resolver struct {
	Embedded  EmbeddedReader
	Extractor Extractor
	Probe     ContainerProbe
	Cache     *Cache
	Logger    *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

// FindFileCover returns the first cover.<ext> in bookRoot, else in stageRoot.
func FindFileCover(bookRoot, stageRoot string) (string, bool) {
	for _, dir := range []string{bookRoot, stageRoot} {
		if dir == "" {
			continue
		}
		for _, ext := range fileCoverExts {
			candidate := filepath.Join(dir, "cover"+ext)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, true
			}
		}
	}
	return "", false
}

// Candidates gathers every automatic cover source for a book. firstAudio
// and container may be empty.
func (r *Resolver) Candidates(bookRoot, stageRoot, firstAudio, container string) Candidates {
	var c Candidates
	if path, ok := FindFileCover(bookRoot, stageRoot); ok {
		c.File = path
	}
	if firstAudio != "" && r.Embedded != nil {
		data, mime, err := r.Embedded.ReadEmbeddedCover(firstAudio)
		switch {
		case err != nil:
			r.logger().Debug("embedded cover unreadable", logging.String("path", firstAudio), logging.Error(err))
		case len(data) > 0:
			if mime == "" {
				mime, _ = Sniff(data)
			}
			c.Embedded = &Image{Data: data, MIME: mime, Origin: OriginEmbedded, Path: firstAudio}
		}
	}
	if container != "" {
		hasCover := true
		if r.Probe != nil {
			ok, err := r.Probe.HasCover(container)
			hasCover = err == nil && ok
		}
		if hasCover {
			c.Container = container
		}
	}
	return c
}

// Plan picks the source for choice without reading any image data. An
// undecided choice walks the fallback chain and fails on a conflict.
func (r *Resolver) Plan(c Candidates, choice Choice) (Plan, error) {
	switch choice.Mode() {
	case ModeSkip:
		return Plan{Origin: OriginNone}, nil
	case ModeEmbedded:
		if c.Embedded == nil {
			return Plan{Origin: OriginNone}, nil
		}
		return Plan{Origin: OriginEmbedded, Path: c.Embedded.Path}, nil
	case ModeFile:
		path, _ := choice.Path()
		if IsURL(path) {
			return Plan{Origin: OriginURL, Path: path}, nil
		}
		return Plan{Origin: OriginFile, Path: path}, nil
	}

	switch {
	case c.Conflict():
		return Plan{}, services.Wrap(services.ErrValidation, "cover", "resolve", "", ErrDecisionRequired)
	case c.File != "":
		return Plan{Origin: OriginFile, Path: c.File}, nil
	case c.Embedded != nil:
		return Plan{Origin: OriginEmbedded, Path: c.Embedded.Path}, nil
	case c.Container != "":
		return Plan{Origin: OriginContainer, Path: c.Container}, nil
	default:
		return Plan{Origin: OriginNone}, nil
	}
}

// Resolve loads the cover selected by choice. workDir receives converted
// or extracted images. It returns nil when the book gets no cover.
func (r *Resolver) Resolve(ctx context.Context, c Candidates, choice Choice, workDir string) (*Image, error) {
	plan, err := r.Plan(c, choice)
	if err != nil {
		return nil, err
	}

	switch plan.Origin {
	case OriginNone:
		return nil, nil
	case OriginEmbedded:
		return c.Embedded, nil
	case OriginContainer:
		return r.extract(ctx, plan.Path, workDir)
	case OriginURL:
		if r.Cache == nil {
			return nil, fmt.Errorf("cover %s: no cover cache configured", plan.Path)
		}
		path, err := r.Cache.Fetch(ctx, plan.Path)
		if err != nil {
			return nil, err
		}
		img, err := r.load(ctx, path, workDir)
		if img != nil {
			img.Origin = OriginURL
		}
		return img, err
	default:
		img, err := r.load(ctx, plan.Path, workDir)
		if err != nil && errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "cover", "resolve",
				fmt.Sprintf("recorded cover %s no longer exists; answer the cover decision again", plan.Path), err)
		}
		return img, err
	}
}

// load reads an image file, converting formats that cannot be embedded.
func (r *Resolver) load(ctx context.Context, path, workDir string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cover: %w", err)
	}
	mime, _ := Sniff(data)
	if Embeddable(mime) {
		return &Image{Data: data, MIME: mime, Origin: OriginFile, Path: path}, nil
	}
	if r.Extractor == nil {
		return nil, fmt.Errorf("cover %s: %s needs conversion but no converter is configured", path, mime)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cover work dir: %w", err)
	}
	dst := filepath.Join(workDir, "cover-converted.jpg")
	if err := r.Extractor.ConvertImage(ctx, path, dst); err != nil {
		return nil, err
	}
	converted, err := os.ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("read converted cover: %w", err)
	}
	return &Image{Data: converted, MIME: MIMEJPEG, Origin: OriginFile, Path: path}, nil
}

// extract pulls the first picture stream out of a container. Failures are
// logged and yield no cover.
func (r *Resolver) extract(ctx context.Context, container, workDir string) (*Image, error) {
	if r.Extractor == nil {
		return nil, nil
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cover work dir: %w", err)
	}
	dst := filepath.Join(workDir, "cover-extracted.jpg")
	if err := r.Extractor.ExtractCover(ctx, container, dst); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(r.logger(), "container cover extraction failed", "cover_extract_failed",
			logging.String("path", container),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "supply cover.jpg next to the audio files"),
			logging.String(logging.FieldImpact, "book imported without a cover"),
		)
		return nil, nil
	}
	data, err := os.ReadFile(dst)
	if err != nil || len(data) == 0 {
		return nil, nil
	}
	return &Image{Data: data, MIME: MIMEJPEG, Origin: OriginContainer, Path: container}, nil
}

// Save writes img as cover.jpg or cover.png in dir and returns the path.
func Save(dir string, img *Image) (string, error) {
	if img == nil {
		return "", nil
	}
	name := "cover.jpg"
	if img.MIME == MIMEPNG {
		name = "cover.png"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
