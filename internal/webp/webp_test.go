package webp

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfoAnimated(t *testing.T) {
	data := []byte(`{
        "streams": [{"width": 512, "height": 512, "nb_read_frames": "48"}],
        "format": {"duration": "2.400000"}
    }`)

	info, err := parseInfo(data)
	require.NoError(t, err)

	assert.Equal(t, 512, info.Width)
	assert.Equal(t, 512, info.Height)
	assert.Equal(t, 48, info.FrameCount)
	assert.True(t, info.Animated)
	assert.InDelta(t, 20.0, info.FPS, 0.001)
}

func TestParseInfoStatic(t *testing.T) {
	data := []byte(`{
        "streams": [{"width": 800, "height": 600, "nb_read_frames": "1"}],
        "format": {}
    }`)

	info, err := parseInfo(data)
	require.NoError(t, err)

	assert.Equal(t, 1, info.FrameCount)
	assert.False(t, info.Animated)
	assert.Equal(t, defaultFPS, info.FPS)
}

func TestParseInfoMissingFrameCount(t *testing.T) {
	data := []byte(`{
        "streams": [{"width": 100, "height": 100, "nb_read_frames": "N/A"}],
        "format": {"duration": "1.0"}
    }`)

	info, err := parseInfo(data)
	require.NoError(t, err)

	// Unreadable counts degrade to a single frame rather than failing.
	assert.Equal(t, 1, info.FrameCount)
	assert.False(t, info.Animated)
	assert.Equal(t, defaultFPS, info.FPS)
}

func TestParseInfoNoStreams(t *testing.T) {
	_, err := parseInfo([]byte(`{"streams": [], "format": {}}`))
	assert.ErrorContains(t, err, "no streams")
}

func TestCompositeOnWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})       // Opaque red.
	src.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0}) // Fully transparent.

	out := compositeOnWhite(src)

	r, g, b, a := out.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})

	r, g, b, a = out.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})
}

func TestFlattenFrameFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame_00001.png")

	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{A: 0})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	require.NoError(t, flattenFrameFile(path))

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
}

func TestHasAlpha(t *testing.T) {
	assert.True(t, hasAlpha(image.NewNRGBA(image.Rect(0, 0, 1, 1))))
	assert.True(t, hasAlpha(image.NewRGBA(image.Rect(0, 0, 1, 1))))
	assert.False(t, hasAlpha(image.NewYCbCr(image.Rect(0, 0, 1, 1), image.YCbCrSubsampleRatio420)))
	assert.False(t, hasAlpha(image.NewGray(image.Rect(0, 0, 1, 1))))
}
