package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Ladder widths, ascending. Every rung is generated for every upload,
// whether or not it exceeds the original width.
var LadderWidths = []int{320, 640, 960, 1280, 1600, 1920}

const (
	// DefaultWidth is the rung served when no width hint is given
	DefaultWidth = 1280

	// WebPQuality is the fixed lossy quality factor for all rungs
	WebPQuality = 75
)

// Decode parses an uploaded image payload
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	return img, nil
}

// GenerateVariants produces one webp encoding per ladder width, keyed by
// width. Height preserves the aspect ratio of the source.
func GenerateVariants(img image.Image) (map[int][]byte, error) {
	variants := make(map[int][]byte, len(LadderWidths))
	for _, width := range LadderWidths {
		resized := Resize(img, width)
		encoded, err := encodeWebP(resized)
		if err != nil {
			return nil, fmt.Errorf("error encoding %d rung: %w", width, err)
		}
		variants[width] = encoded
	}
	return variants, nil
}

// Resize scales the image to the target width, height rounded to keep the
// aspect ratio.
func Resize(img image.Image, targetWidth int) image.Image {
	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()
	newHeight := int(math.Round(float64(originalHeight) * float64(targetWidth) / float64(originalWidth)))
	return imaging.Resize(img, targetWidth, newHeight, imaging.Lanczos)
}

// VariantPath derives the storage path of a ladder rung from the source
// path: a "_width_N" suffix replaces the extension and the encoding is
// normalized to webp. "7/sunset.png" -> "7/sunset_width_640.webp".
func VariantPath(sourcePath string, width int) string {
	ext := path.Ext(sourcePath)
	base := strings.TrimSuffix(sourcePath, ext)
	return fmt.Sprintf("%s_width_%d.webp", base, width)
}

func encodeWebP(img image.Image) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, WebPQuality)
	if err != nil {
		return nil, fmt.Errorf("error creating encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("error encoding WebP image: %w", err)
	}
	return buf.Bytes(), nil
}
