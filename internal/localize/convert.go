package localize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var formatMIME = map[string]string{
	"jpg": "image/jpeg",
	"png": "image/png",
}

// convert re-encodes data as format ("jpg" or "png"). JPEG output is
// flattened on white since it has no alpha channel.
func convert(data []byte, format string, quality int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case "jpg":
		b := src.Bounds()
		bg := imaging.New(b.Dx(), b.Dy(), color.White)
		flat := imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
		err = imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality))
	case "png":
		err = imaging.Encode(&buf, src, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		return nil, fmt.Errorf("unsupported target format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	return buf.Bytes(), nil
}
