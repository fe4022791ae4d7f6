// Package archive unpacks inbox archives with the system's archive tools.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audiomason/internal/deps"
	"audiomason/internal/services"
)

// runFunc executes one tool invocation.
type runFunc func(ctx context.Context, tool string, args ...string) ([]byte, error)

// Unpacker extracts .zip, .rar, and .7z archives.
type Unpacker struct {
	run       runFunc
	available func(tool string) bool
}

// New returns an Unpacker backed by the tools on PATH.
func New() *Unpacker {
	return &Unpacker{run: deps.Run, available: deps.Available}
}

// Unpack extracts archivePath into destDir, creating destDir first.
func (u *Unpacker) Unpack(ctx context.Context, archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create unpack dir: %w", err)
	}

	var err error
	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip":
		_, err = u.run(ctx, "unzip", "-qq", "-o", archivePath, "-d", destDir)
	case ".rar":
		if u.available("unrar") {
			_, err = u.run(ctx, "unrar", "x", "-o+", "-idq", archivePath, destDir+string(filepath.Separator))
		} else {
			err = u.sevenZip(ctx, archivePath, destDir)
		}
	case ".7z":
		err = u.sevenZip(ctx, archivePath, destDir)
	default:
		return services.Wrap(services.ErrValidation, "unpack", "detect", fmt.Sprintf("unsupported archive %q", filepath.Base(archivePath)), nil)
	}
	if err != nil {
		return fmt.Errorf("unpack %s: %w", filepath.Base(archivePath), err)
	}
	return nil
}

func (u *Unpacker) sevenZip(ctx context.Context, archivePath, destDir string) error {
	_, err := u.run(ctx, "7z", "x", "-y", "-o"+destDir, archivePath)
	return err
}
