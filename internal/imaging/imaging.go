// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging generates preview thumbnails for uploaded version images.
// Thumbnails are JPEG-encoded and never wider than the requested width;
// images that already fit are left alone.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// DefaultWidth is the thumbnail width used by the board table.
	DefaultWidth = 400

	// quality is the JPEG quality of generated thumbnails.
	quality = 80

	// maxPixels caps the decoded size to prevent memory bombs.
	// 10000x10000 = 100 million pixels, ~400 MB decoded in RGBA.
	maxPixels = 100_000_000
)

// ContentType is the MIME type of every generated thumbnail.
const ContentType = "image/jpeg"

// ErrTooLarge is returned for images above the pixel limit.
var ErrTooLarge = errors.New("image exceeds pixel limit")

// Thumbnail scales src down to width pixels, keeping the aspect ratio.
// It returns ok=false when the image is already narrow enough.
func Thumbnail(src []byte, width int) (thumb []byte, ok bool, err error) {
	if width <= 0 {
		width = DefaultWidth
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, false, fmt.Errorf("decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, false, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooLarge)
	}
	if cfg.Width <= width {
		return nil, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	height := int(float64(bounds.Dy()) * float64(width) / float64(bounds.Dx()))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, false, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), true, nil
}
