package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemKind(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		want Kind
	}{
		{"mp4 file", "clip.mp4", KindVideo},
		{"webp lowercase", "sticker.webp", KindAnimation},
		{"webp uppercase", "STICKER.WEBP", KindAnimation},
		{"sequence pattern", "frames/frame_%05d.png", KindImageSequence},
		{"short placeholder", "frames/f%d.png", KindImageSequence},
		{"directory", dir, KindImageSequence},
		{"missing file is a video", "nope.mov", KindVideo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := &Item{Path: tt.path}
			assert.Equal(t, tt.want, it.Kind())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "video", KindVideo.String())
	assert.Equal(t, "sequence", KindImageSequence.String())
	assert.Equal(t, "animation", KindAnimation.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestIsSequencePattern(t *testing.T) {
	assert.True(t, IsSequencePattern("frame_%05d.png"))
	assert.True(t, IsSequencePattern("f%d.jpg"))
	assert.False(t, IsSequencePattern("100%off.mp4"))
	assert.False(t, IsSequencePattern("clip.mp4"))
}

func TestSequenceFiles(t *testing.T) {
	dir := t.TempDir()
	names := []string{"frame_00003.png", "frame_00001.png", "frame_00002.png"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame_sub"), 0o755))

	files, err := SequenceFiles(filepath.Join(dir, "frame_%05d.png"))
	require.NoError(t, err)

	// Sorted, and the subdirectory is excluded.
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "frame_00001.png"), files[0])
	assert.Equal(t, filepath.Join(dir, "frame_00003.png"), files[2])
}

func TestSequenceFilesNumericOrder(t *testing.T) {
	dir := t.TempDir()
	// Unpadded numbering: lexicographic order is 10, 11, 9.
	for _, name := range []string{"frame_10.png", "frame_11.png", "frame_9.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := SequenceFiles(dir)
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "frame_9.png"), files[0])
	assert.Equal(t, filepath.Join(dir, "frame_10.png"), files[1])
	assert.Equal(t, filepath.Join(dir, "frame_11.png"), files[2])
}

func TestSequenceFilesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a_001.png", "a_002.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := SequenceFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFrameNumber(t *testing.T) {
	tests := []struct {
		file   string
		want   int
		wantOK bool
	}{
		{"frame_00042.png", 42, true},
		{"/abs/path/shot7.jpg", 7, true},
		{"0.png", 0, true},
		{"cover.png", 0, false},
		{"v2_final.png", 0, false}, // Digits not adjacent to the extension.
	}
	for _, tt := range tests {
		n, ok := FrameNumber(tt.file)
		assert.Equal(t, tt.wantOK, ok, "file %q", tt.file)
		if tt.wantOK {
			assert.Equal(t, tt.want, n, "file %q", tt.file)
		}
	}
}
