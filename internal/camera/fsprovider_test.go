package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFrame(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func newFrameDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	camDir := filepath.Join(root, "back-cam")
	require.NoError(t, os.Mkdir(camDir, 0o755))
	writeTestFrame(t, filepath.Join(camDir, "frame-001.jpg"))
	writeTestFrame(t, filepath.Join(camDir, "frame-002.jpg"))
	require.NoError(t, os.WriteFile(filepath.Join(camDir, "notes.txt"), []byte("ignored"), 0o644))

	require.NoError(t, os.Mkdir(filepath.Join(root, "empty-cam"), 0o755))
	return root
}

func TestFileProvider_Devices(t *testing.T) {
	provider := NewFileProvider(newFrameDir(t))

	devices, err := provider.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "back-cam", devices[0].ID)
}

func TestFileProvider_OpenAndGrabLoops(t *testing.T) {
	provider := NewFileProvider(newFrameDir(t))

	source, err := provider.Open(context.Background(), "back-cam")
	require.NoError(t, err)
	defer source.Close()

	// Two frames on disk, three grabs: the replay wraps around.
	for i := 0; i < 3; i++ {
		img, errGrab := source.Grab(context.Background())
		require.NoError(t, errGrab)
		assert.NotNil(t, img)
	}
}

func TestFileProvider_OpenDeviceWithoutFrames(t *testing.T) {
	provider := NewFileProvider(newFrameDir(t))

	_, err := provider.Open(context.Background(), "empty-cam")
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestFileProvider_OpenUnknownDevice(t *testing.T) {
	provider := NewFileProvider(newFrameDir(t))

	_, err := provider.Open(context.Background(), "nope")
	assert.Error(t, err)
}

func TestFileSource_GrabAfterClose(t *testing.T) {
	provider := NewFileProvider(newFrameDir(t))

	source, err := provider.Open(context.Background(), "back-cam")
	require.NoError(t, err)
	require.NoError(t, source.Close())

	_, err = source.Grab(context.Background())
	assert.ErrorIs(t, err, ErrNotAcquired)
}
