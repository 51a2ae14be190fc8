package projects

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/netsblox/cloud/internal/errs"
)

const (
	thumbnailOpen  = "<thumbnail>data:image/png;base64,"
	thumbnailClose = "</thumbnail>"
)

// renderThumbnail extracts the embedded thumbnail from role code and
// re-encodes it as PNG. When aspectRatio is set, the image is padded
// (never cropped) to that ratio with the original centered.
func renderThumbnail(code string, aspectRatio *float64) ([]byte, error) {
	_, rest, found := strings.Cut(code, thumbnailOpen)
	if !found {
		return nil, errs.ErrThumbnailNotFound
	}
	encoded, _, found := strings.Cut(rest, thumbnailClose)
	if !found {
		return nil, errs.ErrThumbnailNotFound
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errs.Base64Decode(err)
	}
	thumbnail, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.ThumbnailDecode(err)
	}

	if aspectRatio != nil {
		thumbnail = padToRatio(thumbnail, *aspectRatio)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, thumbnail); err != nil {
		return nil, errs.ThumbnailEncode(err)
	}
	return out.Bytes(), nil
}

// padToRatio centers img on a transparent canvas whose aspect ratio is
// ratio. One dimension is always kept; the other only grows.
func padToRatio(img image.Image, ratio float64) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	current := float64(width) / float64(height)

	paddedWidth, paddedHeight := width, height
	if current < ratio {
		paddedWidth = int(ratio * float64(height))
	} else {
		paddedHeight = int(float64(width) / ratio)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, paddedWidth, paddedHeight))
	offset := image.Pt((paddedWidth-width)/2, (paddedHeight-height)/2)
	draw.Draw(canvas, bounds.Add(offset).Sub(bounds.Min), img, bounds.Min, draw.Src)
	return canvas
}
