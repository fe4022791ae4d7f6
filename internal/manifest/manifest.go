package manifest

import (
	"encoding/json"
	"slices"

	"audiomason/internal/covers"
)

const (
	// FileName is the ledger's name inside a stage run directory.
	FileName = "manifest.json"
	// SchemaVersion is stamped on every write.
	SchemaVersion = 2
)

// SourceKind distinguishes directory sources from archives.
type SourceKind string

const (
	SourceDir     SourceKind = "dir"
	SourceArchive SourceKind = "archive"
)

// DestKind records which library root a book was resolved against.
type DestKind string

const (
	// DestArchive is the primary library root.
	DestArchive DestKind = "archive"
	// DestOutput is the secondary staging-only root.
	DestOutput DestKind = "output"
)

// Manifest is the decision ledger for one stage run.
type Manifest struct {
	SchemaVersion int                 `json:"schema_version"`
	Source        Source              `json:"source"`
	Books         Books               `json:"books"`
	Decisions     Decisions           `json:"decisions"`
	BookMeta      map[string]BookMeta `json:"book_meta,omitempty"`
}

// Source identifies the inbox entry the stage was built from.
type Source struct {
	Name        string     `json:"name,omitempty"`
	Stem        string     `json:"stem,omitempty"`
	Path        string     `json:"path,omitempty"`
	Kind        SourceKind `json:"kind,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

// Books tracks book labels through detection, selection, and processing.
type Books struct {
	Detected  []string `json:"detected,omitempty"`
	Picked    []string `json:"picked,omitempty"`
	Processed []string `json:"processed,omitempty"`
}

// Decisions holds run-level answers. Nil pointers are undecided.
type Decisions struct {
	Publish       *bool  `json:"publish,omitempty"`
	WipeID3       *bool  `json:"wipe_id3,omitempty"`
	CleanStage    *bool  `json:"clean_stage,omitempty"`
	SkipProcessed *bool  `json:"skip_processed,omitempty"`
	Author        string `json:"author,omitempty"`
}

// BookMeta holds per-book answers keyed by label.
type BookMeta struct {
	Title     string        `json:"title,omitempty"`
	Cover     covers.Choice `json:"cover,omitzero"`
	DestKind  DestKind      `json:"dest_kind,omitempty"`
	OutTitle  string        `json:"out_title,omitempty"`
	Overwrite *bool         `json:"overwrite,omitempty"`
}

// bookMetaJSON adds the flat cover_mode and cover_src keys next to the
// tagged cover so readers of the older layout keep working.
type bookMetaJSON struct {
	bookMetaFields
	CoverMode covers.Mode `json:"cover_mode,omitempty"`
	CoverSrc  string      `json:"cover_src,omitempty"`
}

type bookMetaFields BookMeta

func (b BookMeta) MarshalJSON() ([]byte, error) {
	out := bookMetaJSON{bookMetaFields: bookMetaFields(b), CoverMode: b.Cover.Mode()}
	out.CoverSrc, _ = b.Cover.Path()
	return json.Marshal(out)
}

// UnmarshalJSON prefers the tagged cover and falls back to the flat keys.
func (b *BookMeta) UnmarshalJSON(data []byte) error {
	var in bookMetaJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = BookMeta(in.bookMetaFields)
	if b.Cover.IsZero() && in.CoverMode != "" {
		b.Cover = legacyCover(string(in.CoverMode), in.CoverSrc)
	}
	return nil
}

// New returns an empty manifest stamped with the current schema.
func New() *Manifest {
	return &Manifest{SchemaVersion: SchemaVersion}
}

// Bool returns a pointer to v, for populating decision fields.
func Bool(v bool) *bool { return &v }

// MatchesFingerprint reports whether the recorded source fingerprint equals fp.
func (m *Manifest) MatchesFingerprint(fp string) bool {
	return m != nil && fp != "" && m.Source.Fingerprint == fp
}

// Meta returns the metadata recorded for label.
func (m *Manifest) Meta(label string) BookMeta {
	if m == nil || m.BookMeta == nil {
		return BookMeta{}
	}
	return m.BookMeta[label]
}

// SetMeta applies fn to the metadata for label.
func (m *Manifest) SetMeta(label string, fn func(*BookMeta)) {
	if m.BookMeta == nil {
		m.BookMeta = make(map[string]BookMeta)
	}
	meta := m.BookMeta[label]
	fn(&meta)
	m.BookMeta[label] = meta
}

// IsProcessed reports whether label finished processing in an earlier run.
func (m *Manifest) IsProcessed(label string) bool {
	return m != nil && slices.Contains(m.Books.Processed, label)
}

// MarkProcessed appends label to the processed list once.
func (m *Manifest) MarkProcessed(label string) {
	if !slices.Contains(m.Books.Processed, label) {
		m.Books.Processed = append(m.Books.Processed, label)
	}
}

// Merge folds patch into m. Non-empty strings, non-nil pointers and slices,
// and decided cover choices replace existing values; book metadata merges
// per label and per field.
func (m *Manifest) Merge(patch Manifest) {
	mergeString(&m.Source.Name, patch.Source.Name)
	mergeString(&m.Source.Stem, patch.Source.Stem)
	mergeString(&m.Source.Path, patch.Source.Path)
	mergeString((*string)(&m.Source.Kind), string(patch.Source.Kind))
	mergeString(&m.Source.Fingerprint, patch.Source.Fingerprint)

	mergeSlice(&m.Books.Detected, patch.Books.Detected)
	mergeSlice(&m.Books.Picked, patch.Books.Picked)
	mergeSlice(&m.Books.Processed, patch.Books.Processed)

	mergeBool(&m.Decisions.Publish, patch.Decisions.Publish)
	mergeBool(&m.Decisions.WipeID3, patch.Decisions.WipeID3)
	mergeBool(&m.Decisions.CleanStage, patch.Decisions.CleanStage)
	mergeBool(&m.Decisions.SkipProcessed, patch.Decisions.SkipProcessed)
	mergeString(&m.Decisions.Author, patch.Decisions.Author)

	for label, pm := range patch.BookMeta {
		m.SetMeta(label, func(meta *BookMeta) {
			mergeString(&meta.Title, pm.Title)
			if !pm.Cover.IsZero() {
				meta.Cover = pm.Cover
			}
			mergeString((*string)(&meta.DestKind), string(pm.DestKind))
			mergeString(&meta.OutTitle, pm.OutTitle)
			mergeBool(&meta.Overwrite, pm.Overwrite)
		})
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeBool(dst **bool, v *bool) {
	if v != nil {
		b := *v
		*dst = &b
	}
}

func mergeSlice(dst *[]string, v []string) {
	if v != nil {
		*dst = append([]string{}, v...)
	}
}
