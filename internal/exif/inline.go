package exif

import (
	"os"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
)

// decodeInline reads embedded metadata directly from a JPEG or TIFF file.
func decodeInline(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	meta, err := goexif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := meta.DateTime()
	if err != nil || ts.IsZero() {
		return time.Time{}, false
	}
	return ts.In(time.Local), true
}
