package carousel

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ayusman/evergreen/internal/logging"
)

// MaxPhotos is the number of carousel slots that can hold a user photo.
const MaxPhotos = 5

// ErrNoPhotos is returned when none of the supplied files could be decoded.
var ErrNoPhotos = errors.New("no decodable photos")

// DecodePhotos decodes up to MaxPhotos images from raw uploads, in order.
// Files that are not images or fail to decode are skipped and logged at
// debug level.
func DecodePhotos(files [][]byte, log logging.Logger) ([]image.Image, error) {
	log = logging.OrNop(log)

	var photos []image.Image
	for i, data := range files {
		if len(photos) == MaxPhotos {
			log.Debugf("Ignoring %d photos beyond the first %d", len(files)-i, MaxPhotos)
			break
		}
		if !filetype.IsImage(data) {
			log.Debugf("Skipping file %d: not an image", i)
			continue
		}

		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			log.Debugf("Skipping file %d: %v", i, err)
			continue
		}
		log.Debugf("Decoded file %d (%s, %dx%d)", i, format, img.Bounds().Dx(), img.Bounds().Dy())
		photos = append(photos, img)
	}

	if len(photos) == 0 {
		return nil, ErrNoPhotos
	}
	return photos, nil
}
