package webp

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
)

// compositeOnWhite flattens any transparency in img against a white
// background. WebP stickers are routinely transparent, and yuv420p output
// has no alpha channel to carry it.
func compositeOnWhite(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}

// flattenFrameFile rewrites an extracted PNG frame in place with its alpha
// composited onto white. Frames without an alpha channel pass through
// untouched.
func flattenFrameFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode frame %q: %w", path, err)
	}

	if !hasAlpha(img) {
		return nil
	}
	return writePNG(path, compositeOnWhite(img))
}

func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
		return true
	}
	return false
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %q: %w", path, err)
	}
	return f.Close()
}
