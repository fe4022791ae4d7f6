package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audiomason/internal/services"
)

type recorder struct {
	calls []string
	fail  error
}

func (r *recorder) run(_ context.Context, tool string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, tool+" "+strings.Join(args, " "))
	return nil, r.fail
}

func newTestUnpacker(rec *recorder, present ...string) *Unpacker {
	return &Unpacker{
		run: rec.run,
		available: func(tool string) bool {
			for _, p := range present {
				if p == tool {
					return true
				}
			}
			return false
		},
	}
}

func TestUnpackDispatchesByExtension(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	tests := []struct {
		archive string
		present []string
		want    string
	}{
		{"/in/Book.ZIP", nil, "unzip -qq -o /in/Book.ZIP -d " + dest},
		{"/in/Book.rar", []string{"unrar"}, "unrar x -o+ -idq /in/Book.rar " + dest + "/"},
		{"/in/Book.rar", nil, "7z x -y -o" + dest + " /in/Book.rar"},
		{"/in/Book.7z", nil, "7z x -y -o" + dest + " /in/Book.7z"},
	}
	for _, tt := range tests {
		rec := &recorder{}
		if err := newTestUnpacker(rec, tt.present...).Unpack(context.Background(), tt.archive, dest); err != nil {
			t.Fatalf("%s: %v", tt.archive, err)
		}
		if len(rec.calls) != 1 || rec.calls[0] != tt.want {
			t.Fatalf("%s: calls = %q, want %q", tt.archive, rec.calls, tt.want)
		}
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatal("destination should be created")
	}
}

func TestUnpackUnsupported(t *testing.T) {
	rec := &recorder{}
	err := newTestUnpacker(rec).Unpack(context.Background(), "/in/Book.tar", t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatal("no tool should run for unsupported archives")
	}
}

func TestUnpackSurfacesToolError(t *testing.T) {
	rec := &recorder{fail: &services.ToolError{Tool: "unzip", ExitCode: 9}}
	err := newTestUnpacker(rec).Unpack(context.Background(), "/in/Book.zip", t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v", err)
	}
}
