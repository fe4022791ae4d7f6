// Package fileutil holds the copy and directory helpers shared by staging and
// publishing. Copies land under a hidden ".part" name and are renamed into
// place, so a reader never sees a half-written track.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies src to dst with mode 0o644.
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode copies src to dst and sets mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	_, err := copyAtomic(src, dst, mode, nil)
	return err
}

// CopyFileVerified copies src to dst and compares size and SHA-256 of what
// was read against what was written. On mismatch nothing is left at dst.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcHash := sha256.New()
	dstHash := sha256.New()
	_, err = copyAtomic(src, dst, 0o644, func(written int64) error {
		if written != srcInfo.Size() {
			return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
		}
		if !bytes.Equal(srcHash.Sum(nil), dstHash.Sum(nil)) {
			return fmt.Errorf("copy hash mismatch: %s corrupted during copy", filepath.Base(src))
		}
		return nil
	}, srcHash, dstHash)
	return err
}

// copyAtomic streams src into a temporary sibling of dst. check, when set,
// runs after the data is flushed and before the rename. With hashes given,
// the first sees the bytes read and the second the bytes written.
func copyAtomic(src, dst string, mode os.FileMode, check func(int64) error, hashes ...hash.Hash) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	var reader io.Reader = in
	var writer io.Writer = tmp
	if len(hashes) == 2 {
		reader = io.TeeReader(in, hashes[0])
		writer = io.MultiWriter(tmp, hashes[1])
	}
	written, err := io.Copy(writer, reader)
	if err != nil {
		return written, err
	}
	if err := tmp.Close(); err != nil {
		return written, err
	}
	if check != nil {
		if err := check(written); err != nil {
			return written, err
		}
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return written, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return written, err
	}
	committed = true
	return written, nil
}
