// Package tags reads and writes audio metadata. Reading goes through
// dhowden/tag, which understands both ID3 and MP4 atoms; writing is limited
// to ID3v2.4 on mp3 files.
package tags

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
)

// Genre is written to every imported file.
const Genre = "Audiobook"

// Metadata is the subset of tags an import writes and verify checks.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Track  int
	Total  int
}

// Read returns the tags of path. A file without tags returns zero
// Metadata and no error.
func Read(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return Metadata{}, nil
		}
		return Metadata{}, fmt.Errorf("read tags %s: %w", filepath.Base(path), err)
	}
	track, total := m.Track()
	return Metadata{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
		Track:  track,
		Total:  total,
	}, nil
}

// ReadEmbeddedCover returns the first picture embedded in path, or nil data
// when there is none.
func ReadEmbeddedCover(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read tags %s: %w", filepath.Base(path), err)
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, "", nil
	}
	return pic.Data, pic.MIMEType, nil
}

// Cover is picture data to embed.
type Cover struct {
	Data []byte
	MIME string
}

// WriteTags rewrites title, artist, album, track n/N, and genre on every
// mp3 in files, in order. Existing pictures are replaced by cover, or kept
// when cover is nil.
func WriteTags(files []string, artist, album string, cover *Cover) error {
	total := len(files)
	for i, path := range files {
		err := edit(path, func(t *id3v2.Tag) {
			enc := id3v2.EncodingUTF8
			t.SetTitle(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			t.SetArtist(artist)
			t.SetAlbum(album)
			t.SetGenre(Genre)
			t.DeleteFrames(t.CommonID("Track number/Position in set"))
			t.AddTextFrame(t.CommonID("Track number/Position in set"), enc, strconv.Itoa(i+1)+"/"+strconv.Itoa(total))
			if cover != nil {
				setPicture(t, cover)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteCover replaces the picture on every file without touching other
// frames.
func WriteCover(files []string, cover *Cover) error {
	for _, path := range files {
		if err := edit(path, func(t *id3v2.Tag) { setPicture(t, cover) }); err != nil {
			return err
		}
	}
	return nil
}

// WipeTags removes every ID3 frame from files.
func WipeTags(files []string) error {
	for _, path := range files {
		if err := edit(path, func(t *id3v2.Tag) { t.DeleteAllFrames() }); err != nil {
			return err
		}
	}
	return nil
}

func setPicture(t *id3v2.Tag, cover *Cover) {
	t.DeleteFrames(t.CommonID("Attached picture"))
	if cover == nil || len(cover.Data) == 0 {
		return
	}
	mime := cover.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	t.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    mime,
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     cover.Data,
	})
}

func edit(path string, fn func(*id3v2.Tag)) error {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return fmt.Errorf("write tags %s: only mp3 files are supported", filepath.Base(path))
	}
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags %s: %w", filepath.Base(path), err)
	}
	defer t.Close()

	t.SetVersion(4)
	fn(t)
	if err := t.Save(); err != nil {
		return fmt.Errorf("save tags %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Library bundles the package functions for callers that take interfaces.
type Library struct{}

func (Library) ReadEmbeddedCover(path string) ([]byte, string, error) { return ReadEmbeddedCover(path) }

func (Library) WriteTags(files []string, artist, album string, cover *Cover) error {
	return WriteTags(files, artist, album, cover)
}

func (Library) WriteCover(files []string, cover *Cover) error { return WriteCover(files, cover) }

func (Library) WipeTags(files []string) error { return WipeTags(files) }
