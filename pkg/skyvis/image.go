package skyvis

import (
	"fmt"
	"time"
)

// Image is one all-sky exposure: a normalized float32 pixel matrix plus the
// acquisition time and the identity of the camera that took it. Detectors
// borrow an Image for the duration of one detect call and never mutate it;
// all working buffers are owned copies.
type Image struct {
	Pixels Mat
	Width  int
	Height int
	Time   time.Time
	Camera string
}

// NewImage wraps an existing pixel matrix. The Image takes ownership of the Mat.
func NewImage(pixels Mat, t time.Time, camera string) *Image {
	return &Image{
		Pixels: pixels,
		Width:  pixels.Cols(),
		Height: pixels.Rows(),
		Time:   t,
		Camera: camera,
	}
}

func (img *Image) Close() {
	img.Pixels.Close()
}

// LoadFitsImage reads an all-sky exposure from a FITS file. The acquisition
// time comes from the DATE-OBS header (falling back to DATE); the camera name
// from the camera argument, or INSTRUME when empty.
func LoadFitsImage(path, camera string) (*Image, error) {
	fits, err := ReadFits(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return imageFromFits(fits, camera)
}

// LoadFitsImageDebayered reads a raw RGGB color exposure and converts it to
// a luminance channel before wrapping it as an Image.
func LoadFitsImageDebayered(path, camera string) (*Image, error) {
	img, err := LoadFitsImage(path, camera)
	if err != nil {
		return nil, err
	}
	lum := DebayerRGGB(img.Pixels)
	img.Pixels.Close()
	img.Pixels = lum
	return img, nil
}

func imageFromFits(fits *FitsImageData, camera string) (*Image, error) {
	obsTime, ok := fits.Metadata.ObservationTime()
	if !ok {
		obsTime = time.Time{}
	}
	if camera == "" {
		camera = fits.Metadata.CameraName()
	}
	pixels := ToFloat32Mat(fits.Pixels, fits.BitDepth, fits.Width, fits.Height)
	return NewImage(pixels, obsTime, camera), nil
}
