package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/susatyo441/shop-vision/internal/domain"
)

// FileProvider simulates camera hardware from a directory tree: each
// subdirectory is one device, its image files are the frames, replayed in a
// loop. It keeps the service runnable on hosts without capture hardware and
// gives tests a deterministic source.
type FileProvider struct {
	root string
}

func NewFileProvider(root string) *FileProvider {
	return &FileProvider{root: root}
}

func (p *FileProvider) Devices(_ context.Context) ([]domain.CameraDevice, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("read frame directory failed: %w", err)
	}

	var devices []domain.CameraDevice
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		devices = append(devices, domain.CameraDevice{
			ID:    e.Name(),
			Label: e.Name(),
		})
	}
	return devices, nil
}

func (p *FileProvider) Open(_ context.Context, deviceID string) (Source, error) {
	dir := filepath.Join(p.root, deviceID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("open simulated device %q failed: %w", deviceID, err)
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("simulated device %q has no frames: %w", deviceID, ErrNoCamera)
	}
	sort.Strings(frames)

	return &fileSource{frames: frames}, nil
}

type fileSource struct {
	mu     sync.Mutex
	frames []string
	next   int
	closed bool
}

func (s *fileSource) Grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrNotAcquired
	}
	path := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read frame %s failed: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s failed: %w", path, err)
	}
	return img, nil
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
