// Package verify audits an imported library. Every directory holding mp3
// files must carry a cover image, readable artist and album tags, and
// sequential 01..NN file names.
package verify

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audiomason/internal/tags"
	"audiomason/internal/tracks"
)

// Problem kinds.
const (
	ProblemNoCover     = "missing_cover"
	ProblemTags        = "missing_tags"
	ProblemUnreadable  = "unreadable_tags"
	ProblemNumbering   = "non_sequential_names"
	ProblemUnreachable = "unreadable_directory"
)

// Problem is one finding in one book directory.
type Problem struct {
	Dir    string `json:"dir"`
	Kind   string `json:"kind"`
	File   string `json:"file,omitempty"`
	Detail string `json:"detail"`
}

// Result lists audited directories and their problems.
type Result struct {
	Root     string    `json:"root"`
	Books    int       `json:"books"`
	Problems []Problem `json:"problems"`
}

// OK reports whether no problem was found.
func (r Result) OK() bool { return len(r.Problems) == 0 }

// TagReader returns the tags of one file. tags.Read is the production reader.
type TagReader func(path string) (tags.Metadata, error)

// Library walks root and audits every directory that contains mp3 files.
func Library(ctx context.Context, root string, read TagReader) (Result, error) {
	if read == nil {
		read = tags.Read
	}
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, err
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s is not a directory", root)
	}

	res := Result{Root: root, Problems: []Problem{}}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			res.Problems = append(res.Problems, Problem{Dir: path, Kind: ProblemUnreachable, Detail: walkErr.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		problems, isBook, err := Dir(path, read)
		if err != nil {
			res.Problems = append(res.Problems, Problem{Dir: path, Kind: ProblemUnreachable, Detail: err.Error()})
			return nil
		}
		if isBook {
			res.Books++
			res.Problems = append(res.Problems, problems...)
		}
		return nil
	})
	return res, err
}

// Dir audits one directory. isBook is false when it holds no mp3 files.
func Dir(dir string, read TagReader) (problems []Problem, isBook bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false, err
	}
	var mp3s []string
	hasCover := false
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		switch strings.ToLower(name) {
		case "cover.jpg", "cover.png":
			hasCover = true
		}
		if strings.EqualFold(filepath.Ext(name), ".mp3") {
			mp3s = append(mp3s, name)
		}
	}
	if len(mp3s) == 0 {
		return nil, false, nil
	}
	sort.Strings(mp3s)

	if !hasCover {
		problems = append(problems, Problem{Dir: dir, Kind: ProblemNoCover, Detail: "no cover.jpg or cover.png"})
	}
	for _, name := range mp3s {
		md, err := read(filepath.Join(dir, name))
		switch {
		case err != nil:
			problems = append(problems, Problem{Dir: dir, Kind: ProblemUnreadable, File: name, Detail: err.Error()})
		case md.Artist == "" || md.Album == "":
			var missing []string
			if md.Artist == "" {
				missing = append(missing, "artist")
			}
			if md.Album == "" {
				missing = append(missing, "album")
			}
			problems = append(problems, Problem{Dir: dir, Kind: ProblemTags, File: name, Detail: "missing " + strings.Join(missing, " and ")})
		}
	}
	for i, name := range mp3s {
		if want := tracks.SequentialName(i+1, len(mp3s), ".mp3"); strings.ToLower(name) != want {
			problems = append(problems, Problem{
				Dir:    dir,
				Kind:   ProblemNumbering,
				File:   name,
				Detail: fmt.Sprintf("expected %s", want),
			})
			break
		}
	}
	return problems, true, nil
}
