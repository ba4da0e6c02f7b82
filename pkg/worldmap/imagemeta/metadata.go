// Package imagemeta reads the format and pixel size of an encoded image
// without decoding its pixels.
package imagemeta

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

// ErrUnknownFormat is returned for bytes no registered decoder recognizes.
var ErrUnknownFormat = errors.New("unknown image format")

type Metadata struct {
	Format string // "png", "jpeg", "gif", "bmp", "tiff" or "webp"
	Width  int
	Height int
	Size   int // Encoded size in bytes
}

func (m Metadata) String() string {
	return fmt.Sprintf("%s %dx%d (%s)", m.Format, m.Width, m.Height, humanize.Bytes(uint64(m.Size)))
}

// Probe inspects an encoded image.
func Probe(img models.Image) (*Metadata, error) {
	if img.Empty() {
		return nil, errors.New("empty image")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	return &Metadata{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   len(img.Data),
	}, nil
}
