package manifest

import (
	"encoding/json"
	"strings"

	"audiomason/internal/covers"
)

// legacyManifest is the schema 1 shape: untyped source flags and cover
// decisions stored as a mode string plus a source string.
type legacyManifest struct {
	Source struct {
		Name        string `json:"name"`
		Stem        string `json:"stem"`
		Path        string `json:"path"`
		IsDir       bool   `json:"is_dir"`
		IsFile      bool   `json:"is_file"`
		Fingerprint string `json:"fingerprint"`
	} `json:"source"`
	Books     Books `json:"books"`
	Decisions struct {
		Publish    *bool  `json:"publish"`
		WipeID3    *bool  `json:"wipe_id3"`
		CleanStage *bool  `json:"clean_stage"`
		Author     string `json:"author"`
	} `json:"decisions"`
	BookMeta map[string]struct {
		Title     string `json:"title"`
		CoverMode string `json:"cover_mode"`
		CoverSrc  string `json:"cover_src"`
		DestKind  string `json:"dest_kind"`
		OutTitle  string `json:"out_title"`
		Overwrite *bool  `json:"overwrite"`
	} `json:"book_meta"`
}

// migrateV1 converts a schema 1 document. A "file" cover without a source is
// dropped so the question is asked again instead of carrying a broken choice.
func migrateV1(data []byte) (*Manifest, error) {
	var old legacyManifest
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}
	m := New()
	m.Source = Source{
		Name:        old.Source.Name,
		Stem:        old.Source.Stem,
		Path:        old.Source.Path,
		Fingerprint: old.Source.Fingerprint,
	}
	switch {
	case old.Source.IsDir:
		m.Source.Kind = SourceDir
	case old.Source.IsFile:
		m.Source.Kind = SourceArchive
	}
	m.Books = old.Books
	m.Decisions = Decisions{
		Publish:    old.Decisions.Publish,
		WipeID3:    old.Decisions.WipeID3,
		CleanStage: old.Decisions.CleanStage,
		Author:     old.Decisions.Author,
	}
	for label, meta := range old.BookMeta {
		m.SetMeta(label, func(bm *BookMeta) {
			bm.Title = meta.Title
			bm.Cover = legacyCover(meta.CoverMode, meta.CoverSrc)
			bm.DestKind = DestKind(meta.DestKind)
			bm.OutTitle = meta.OutTitle
			bm.Overwrite = meta.Overwrite
		})
	}
	return m, nil
}

func legacyCover(mode, src string) covers.Choice {
	mode = strings.ToLower(strings.TrimSpace(mode))
	src = strings.TrimSpace(src)
	switch mode {
	case string(covers.ModeEmbedded):
		return covers.Embedded()
	case string(covers.ModeSkip):
		return covers.Skip()
	case string(covers.ModeFile):
		if src == "" || src == "embedded" || src == "skip" {
			return covers.Choice{}
		}
		return covers.File(src)
	default:
		return covers.Choice{}
	}
}
