package merge

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	// Registered decoders for every supported raster extension.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeImage decodes any supported raster format.
func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("decode image: no pixels")
	}
	return img, format, nil
}

// toRGB flattens img onto a white background, dropping any alpha channel
// and palette.
func toRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// normalizeImage decodes an uploaded raster and re-encodes it as an opaque
// RGB JPEG.
func normalizeImage(data []byte, quality int) ([]byte, image.Rectangle, error) {
	img, _, err := decodeImage(data)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	rgb := toRGB(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), rgb.Bounds(), nil
}
