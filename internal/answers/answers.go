// Package answers loads a YAML file of per-source and per-book answers that
// lets an import run without prompts.
//
//	sources:
//	  "Capek, Karel - Valka s mloky":
//	    author: Capek.Karel
//	    books:
//	      __ROOT_AUDIO__:
//	        title: Valka s mloky
//	        cover: file:/covers/mloci.jpg
//	        overwrite: false
package answers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"audiomason/internal/covers"
	"audiomason/internal/services"
	"audiomason/internal/textutil"
)

// File is a parsed answers file.
type File struct {
	Sources map[string]Source `yaml:"sources"`
}

// Source holds answers for one inbox source.
type Source struct {
	Author string          `yaml:"author"`
	Books  map[string]Book `yaml:"books"`
}

// Book holds answers for one detected book, keyed by its label.
type Book struct {
	Title     string `yaml:"title"`
	Cover     string `yaml:"cover"`
	Overwrite *bool  `yaml:"overwrite"`
}

// Load reads path. An empty path returns an empty File.
func Load(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "answers", "read", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrConfiguration, "answers", "parse", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "answers", "validate", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	for name, src := range f.Sources {
		for label, book := range src.Books {
			if strings.TrimSpace(book.Cover) == "" {
				continue
			}
			if _, err := covers.ParseChoice(book.Cover); err != nil {
				return fmt.Errorf("source %q book %q: %w", name, label, err)
			}
		}
	}
	return nil
}

// Source returns the answers for a source name. An exact key wins over a
// case-insensitive match.
func (f *File) Source(name string) Source {
	if f == nil {
		return Source{}
	}
	if src, ok := f.Sources[name]; ok {
		return src
	}
	key := textutil.FoldKey(name)
	for candidate, src := range f.Sources {
		if textutil.FoldKey(candidate) == key {
			return src
		}
	}
	return Source{}
}

// Book returns the answers for a book label.
func (s Source) Book(label string) Book {
	return s.Books[label]
}

// CoverChoice parses the cover answer. ok is false when none was given.
func (b Book) CoverChoice() (covers.Choice, bool) {
	if strings.TrimSpace(b.Cover) == "" {
		return covers.Choice{}, false
	}
	choice, err := covers.ParseChoice(b.Cover)
	if err != nil {
		return covers.Choice{}, false
	}
	return choice, true
}
