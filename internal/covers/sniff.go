package covers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// MIME types accepted as cover art without conversion.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

// Sniff reports the MIME type and cache extension of data from its leading
// bytes. Anything other than JPEG, PNG, or WebP is reported as
// application/octet-stream with extension ".img".
func Sniff(data []byte) (mime, ext string) {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is(MIMEJPEG):
		return MIMEJPEG, ".jpg"
	case detected.Is(MIMEPNG):
		return MIMEPNG, ".png"
	case detected.Is(MIMEWebP):
		return MIMEWebP, ".webp"
	default:
		return "application/octet-stream", ".img"
	}
}

// Embeddable reports whether mime can be written into tags and cover files
// as-is.
func Embeddable(mime string) bool {
	return mime == MIMEJPEG || mime == MIMEPNG
}

// Info summarizes a decoded image header.
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d", i.Format, i.Width, i.Height)
}

// Describe decodes the image header of data. Undecodable data is an error.
func Describe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode cover image: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
