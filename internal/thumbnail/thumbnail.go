// Package thumbnail wraps the fixed resize+encode policy that turns an
// arbitrary submitted photo into a bounded-size JPEG. It is a thin adapter
// over github.com/disintegration/imaging rather than a general image
// toolkit; the policy values live in the model package next to the records
// that carry them.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"conbadge/internal/model"
)

// ErrDecode marks input that is not a decodable raster image. Callers abort
// the whole upsert on it, so nothing is persisted for a corrupt photo.
var ErrDecode = errors.New("undecodable image")

const jpegQuality = 85

// Normalize decodes data, scales it down (never up) to fit within the
// model.ThumbWidth x model.ThumbHeight box preserving aspect ratio, and
// re-encodes as JPEG. Re-encoding through a decoded pixel buffer also strips
// any metadata the original carried. Pure CPU work, safe for concurrent use.
func Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	// Fit keeps the aspect ratio and leaves images that already fit the box
	// untouched, which is exactly the "max" fit mode: no crop, no upscale.
	thumb := imaging.Fit(img, model.ThumbWidth, model.ThumbHeight, imaging.CatmullRom)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
