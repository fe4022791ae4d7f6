// Package mp4probe reads the few facts an import needs from m4a/m4b
// containers: whether they carry cover art and how long they run.
package mp4probe

import (
	"fmt"
	"io"
	"os"
	"time"

	gomp4 "github.com/abema/go-mp4"
)

var boxTypeCovr = gomp4.StrToBoxType("covr")

// Info summarizes an MP4 audio container.
type Info struct {
	Duration   time.Duration
	HasCover   bool
	CoverBytes uint64
}

// Probe reads path's box structure.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	return ProbeReader(f)
}

// ProbeReader reads the box structure of r.
func ProbeReader(r io.ReadSeeker) (Info, error) {
	var info Info
	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case gomp4.BoxTypeMoov(), gomp4.BoxTypeUdta(), gomp4.BoxTypeMeta(), gomp4.BoxTypeIlst():
			return h.Expand()
		case gomp4.BoxTypeMvhd():
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if mvhd, ok := payload.(*gomp4.Mvhd); ok && mvhd.Timescale > 0 {
				duration := uint64(mvhd.DurationV0)
				if mvhd.Version != 0 {
					duration = mvhd.DurationV1
				}
				info.Duration = time.Duration(float64(duration) / float64(mvhd.Timescale) * float64(time.Second))
			}
			return nil, nil
		case boxTypeCovr:
			if size := h.BoxInfo.Size - h.BoxInfo.HeaderSize; size > 0 {
				info.HasCover = true
				info.CoverBytes = size
			}
			return nil, nil
		default:
			return nil, nil
		}
	})
	if err != nil {
		return Info{}, fmt.Errorf("read mp4 boxes: %w", err)
	}
	return info, nil
}

// Prober adapts Probe to cover resolution.
type Prober struct{}

// HasCover reports whether path has a covr atom.
func (Prober) HasCover(path string) (bool, error) {
	info, err := Probe(path)
	if err != nil {
		return false, err
	}
	return info.HasCover, nil
}
