package staging

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"audiomason/internal/fileutil"
	"audiomason/internal/inbox"
	"audiomason/internal/logging"
	"audiomason/internal/manifest"
	"audiomason/internal/services"
	"audiomason/internal/textutil"
)

// Unpacker extracts an archive into a directory, creating it if needed.
type Unpacker interface {
	Unpack(ctx context.Context, archivePath, destDir string) error
}

// Run is one source's stage workspace.
type Run struct {
	Dir      string
	SrcDir   string
	Manifest *manifest.Store
}

// RunDir returns the run directory for a source name. Inbox entry names are
// unique, so the hash suffix keeps names that slug alike apart.
func RunDir(stageRoot, sourceName string) string {
	sum := sha1.Sum([]byte(sourceName))
	return filepath.Join(stageRoot, textutil.Slug(sourceName)+"-"+hex.EncodeToString(sum[:4]))
}

// Open returns the run for sourceName without touching disk.
func Open(stageRoot, sourceName string) *Run {
	dir := RunDir(stageRoot, sourceName)
	return &Run{
		Dir:      dir,
		SrcDir:   filepath.Join(dir, "src"),
		Manifest: manifest.Open(dir),
	}
}

// WorkDir returns the scratch directory used while processing a book.
func (r *Run) WorkDir(label string) string {
	return filepath.Join(r.Dir, "work", textutil.Slug(label))
}

// Reusable reports whether the staged source exists and was recorded with
// fingerprint.
func (r *Run) Reusable(fingerprint string) bool {
	info, err := os.Stat(r.SrcDir)
	if err != nil || !info.IsDir() {
		return false
	}
	m, _ := r.Manifest.Load()
	return m.MatchesFingerprint(fingerprint)
}

// Prepare makes the stage ready for src. When reuse is set and the stage is
// reusable it is left untouched and Prepare reports true. Otherwise the run
// directory is destroyed and the source is copied or unpacked again.
func (r *Run) Prepare(ctx context.Context, src inbox.Source, fingerprint string, reuse bool, unpacker Unpacker, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if reuse && r.Reusable(fingerprint) {
		logger.Info("reusing staged source",
			logging.String("stage", r.Dir),
			logging.String(logging.FieldEventType, "stage_reused"),
		)
		return true, nil
	}

	if err := os.RemoveAll(r.Dir); err != nil {
		return false, services.Wrap(services.ErrValidation, "stage", "reset", r.Dir, err)
	}
	if err := os.MkdirAll(r.SrcDir, 0o755); err != nil {
		return false, services.Wrap(services.ErrValidation, "stage", "create", r.Dir, err)
	}

	switch src.Kind {
	case inbox.KindArchive:
		if unpacker == nil {
			return false, fmt.Errorf("stage %s: no unpacker configured", src.Name)
		}
		if err := unpacker.Unpack(ctx, src.Path, r.SrcDir); err != nil {
			return false, fmt.Errorf("unpack %s: %w", src.Name, err)
		}
	default:
		if err := fileutil.CopyTree(ctx, src.Path, r.SrcDir); err != nil {
			return false, fmt.Errorf("copy %s into stage: %w", src.Name, err)
		}
	}

	kind := manifest.SourceDir
	if src.Kind == inbox.KindArchive {
		kind = manifest.SourceArchive
	}
	if _, err := r.Manifest.Update(func(m *manifest.Manifest) {
		m.Source = manifest.Source{
			Name:        src.Name,
			Stem:        src.Stem(),
			Path:        src.Path,
			Kind:        kind,
			Fingerprint: fingerprint,
		}
	}); err != nil {
		return false, fmt.Errorf("record staged source: %w", err)
	}

	logger.Info("staged source",
		logging.String("stage", r.Dir),
		logging.String("kind", string(src.Kind)),
		logging.String(logging.FieldEventType, "stage_created"),
	)
	return false, nil
}

// Remove deletes the whole run directory.
func (r *Run) Remove() error {
	return os.RemoveAll(r.Dir)
}
