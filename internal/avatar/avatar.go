// Package avatar prepares profile images for upload.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxSide is the default longest edge, in pixels, of an uploaded avatar.
const MaxSide = 512

// ErrNotImage is returned when the input cannot be decoded as an image.
var ErrNotImage = errors.New("not a supported image")

// Prepare decodes data, applies EXIF orientation and shrinks the image so
// neither side exceeds maxSide. Images already within bounds are re-encoded
// without scaling. JPEG and PNG keep their format; every other format is
// converted to PNG. It returns the encoded image and the name to upload it as.
func Prepare(filename string, data []byte, maxSide int) ([]byte, string, error) {
	if maxSide <= 0 {
		maxSide = MaxSide
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	format, err := imaging.FormatFromFilename(filename)
	if err != nil || (format != imaging.JPEG && format != imaging.PNG) {
		format = imaging.PNG
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".png"
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("encoding avatar: %w", err)
	}
	return out.Bytes(), filename, nil
}
