package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

const (
	syntheticOperationPrefix = "synthetic/operations/"
	syntheticVideoScheme     = "synthetic://video/"
)

func (c *Client) syntheticImage(req ImageRequest) *ImageAsset {
	width, height := aspectDimensions(req.AspectRatio, req.ImageSize)
	seed := deterministicSeed(req.Model, req.Prompt, req.AspectRatio, req.ImageSize, len(req.Sources))
	c.logger.Debug().Str("model", req.Model).Str("seed", seed).Msg("genai: rendered synthetic image")
	return &ImageAsset{
		MIMEType: "image/png",
		Data:     renderSyntheticImage(width, height, seed),
		Width:    width,
		Height:   height,
	}
}

// aspectDimensions returns pixel dimensions whose long edge matches the
// requested size class.
func aspectDimensions(aspect, size string) (int, int) {
	long := 1024
	switch strings.ToUpper(strings.TrimSpace(size)) {
	case "2K":
		long = 2048
	case "4K":
		long = 4096
	}
	w, h := 1, 1
	if parts := strings.Split(strings.TrimSpace(aspect), ":"); len(parts) == 2 {
		a, errA := strconv.Atoi(parts[0])
		b, errB := strconv.Atoi(parts[1])
		if errA == nil && errB == nil && a > 0 && b > 0 {
			w, h = a, b
		}
	}
	if w >= h {
		return long, long * h / w
	}
	return long * w / h, long
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripe := max(32, height/12)
	for y := 0; y < height; y += stripe * 2 {
		band := image.Rect(0, y, width, min(height, y+stripe))
		draw.Draw(img, band, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func renderSyntheticVideo(seed string) []byte {
	return []byte(fmt.Sprintf("synthetic video placeholder\nseed: %s\n", seed))
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: hexByte(segment[0:2]), G: hexByte(segment[2:4]), B: hexByte(segment[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
