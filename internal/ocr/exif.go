package ocr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// ReadCapture decodes EXIF metadata from a photo. Images without EXIF
// return an error.
func ReadCapture(image []byte) (*Capture, error) {
	x, err := exif.Decode(bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("decode exif: %w", err)
	}
	c := &Capture{
		Make:     exifString(x, exif.Make),
		Model:    exifString(x, exif.Model),
		Software: exifString(x, exif.Software),
	}
	if taken, err := x.DateTime(); err == nil {
		c.TakenAt = taken.UTC()
	}
	return c, nil
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}
