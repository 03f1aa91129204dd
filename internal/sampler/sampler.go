// Package sampler turns a camera source into a cadence of fixed-size JPEG
// frames pushed onto the detection channel.
package sampler

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/susatyo441/shop-vision/internal/camera"
)

// FrameSink is the slice of the detection channel the sampler needs.
type FrameSink interface {
	IsOpen() bool
	AddInFlight()
	ReleaseInFlight()
	Send(frame []byte) error
}

type Sampler struct {
	interval time.Duration
	size     int
	quality  int
}

func New(interval time.Duration, size, quality int) *Sampler {
	return &Sampler{
		interval: interval,
		size:     size,
		quality:  quality,
	}
}

// Run samples frames from source and sends them to sink until the context
// is cancelled. Cadence is best effort: a tick with no usable source or no
// open channel is skipped, never queued or retried, and cancellation stops
// sampling immediately with no buffered frames left behind.
func (s *Sampler) Run(ctx context.Context, source camera.Source, sink FrameSink) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx, source, sink)
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context, source camera.Source, sink FrameSink) {
	if source == nil || !sink.IsOpen() {
		return
	}

	img, err := source.Grab(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("frame grab failed", "error", err)
		}
		return
	}

	frame, err := s.encode(img)
	if err != nil {
		slog.Warn("frame encode failed", "error", err)
		return
	}

	sink.AddInFlight()
	if errSend := sink.Send(frame); errSend != nil {
		// The frame never left, give the slot back.
		sink.ReleaseInFlight()
		slog.Warn("frame send failed", "error", errSend)
	}
}

// encode stretches the frame to size x size and compresses it to JPEG.
// Aspect ratio is deliberately not preserved; the detector was trained on
// stretched squares, not letterboxed ones.
func (s *Sampler) encode(img image.Image) ([]byte, error) {
	scaled := image.NewRGBA(image.Rect(0, 0, s.size, s.size))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
