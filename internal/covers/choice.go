package covers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode names how a book's cover is sourced.
type Mode string

const (
	ModeFile     Mode = "file"
	ModeEmbedded Mode = "embedded"
	ModeSkip     Mode = "skip"
)

// Choice is a recorded cover decision. Only File carries a path; the zero
// value means "not decided yet".
type Choice struct {
	mode Mode
	path string
}

// File selects the image at path.
func File(path string) Choice { return Choice{mode: ModeFile, path: path} }

// Embedded selects the picture already embedded in the book's audio.
func Embedded() Choice { return Choice{mode: ModeEmbedded} }

// Skip writes no cover.
func Skip() Choice { return Choice{mode: ModeSkip} }

// Mode returns the choice's mode, or "" when undecided.
func (c Choice) Mode() Mode { return c.mode }

// Path returns the image path for File choices.
func (c Choice) Path() (string, bool) {
	if c.mode != ModeFile {
		return "", false
	}
	return c.path, true
}

// IsZero reports whether no decision has been recorded.
func (c Choice) IsZero() bool { return c.mode == "" }

func (c Choice) String() string {
	switch c.mode {
	case ModeFile:
		return "file:" + c.path
	case "":
		return "undecided"
	default:
		return string(c.mode)
	}
}

// ParseChoice accepts "embedded", "skip", or "file:<path>".
func ParseChoice(value string) (Choice, error) {
	value = strings.TrimSpace(value)
	switch {
	case strings.EqualFold(value, string(ModeEmbedded)):
		return Embedded(), nil
	case strings.EqualFold(value, string(ModeSkip)):
		return Skip(), nil
	case strings.HasPrefix(value, "file:"):
		path := strings.TrimSpace(strings.TrimPrefix(value, "file:"))
		if path == "" {
			return Choice{}, fmt.Errorf("cover choice %q: file mode needs a path", value)
		}
		return File(path), nil
	default:
		return Choice{}, fmt.Errorf("unknown cover choice %q (want embedded, skip, or file:<path>)", value)
	}
}

type choiceJSON struct {
	Mode Mode   `json:"mode"`
	Path string `json:"path,omitempty"`
}

func (c Choice) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(choiceJSON{Mode: c.mode, Path: c.path})
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Choice{}
		return nil
	}
	var raw choiceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Mode {
	case ModeFile:
		if strings.TrimSpace(raw.Path) == "" {
			return fmt.Errorf("cover choice: file mode without path")
		}
		*c = File(raw.Path)
	case ModeEmbedded:
		*c = Embedded()
	case ModeSkip:
		*c = Skip()
	default:
		return fmt.Errorf("cover choice: unknown mode %q", raw.Mode)
	}
	return nil
}
