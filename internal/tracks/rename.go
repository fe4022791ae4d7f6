package tracks

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const tempPrefix = ".__am_tmp__"

// SequentialName returns the final name for position i (1-based) in a list of
// total files: at least two digits, wider when total needs it.
func SequentialName(i, total int, ext string) string {
	width := len(strconv.Itoa(total))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%0*d%s", width, i, ext)
}

// RenameSequential renames the ordered files inside dir to 01, 02, ... keeping
// each file's lower-cased extension, and returns the final paths in order.
//
// Collisions are checked before anything is renamed. A failure part way
// through leaves the directory with temporary names; the run has to restart
// from a clean stage.
func RenameSequential(dir string, files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	sources := make(map[string]struct{}, len(files))
	for _, f := range files {
		if filepath.Dir(f) != filepath.Clean(dir) {
			return nil, fmt.Errorf("rename: %s is not inside %s", f, dir)
		}
		sources[filepath.Base(f)] = struct{}{}
	}

	temps := make([]string, len(files))
	finals := make([]string, len(files))
	for i, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		temps[i] = filepath.Join(dir, fmt.Sprintf("%s%04d%s", tempPrefix, i+1, ext))
		finals[i] = filepath.Join(dir, SequentialName(i+1, len(files), ext))
	}
	for _, p := range append(append([]string(nil), temps...), finals...) {
		if _, taken := sources[filepath.Base(p)]; taken {
			continue
		}
		if _, err := os.Lstat(p); err == nil {
			return nil, fmt.Errorf("rename: target %s already exists", p)
		}
	}

	for i, f := range files {
		if err := os.Rename(f, temps[i]); err != nil {
			return nil, fmt.Errorf("rename %s to temporary name: %w", filepath.Base(f), err)
		}
	}
	for i, tmp := range temps {
		if err := os.Rename(tmp, finals[i]); err != nil {
			return nil, fmt.Errorf("rename %s to %s: %w", filepath.Base(tmp), filepath.Base(finals[i]), err)
		}
	}
	return finals, nil
}
