package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/susatyo441/shop-vision/internal/camera"
	"github.com/susatyo441/shop-vision/internal/domain"
)

// fakeConn implements Conn without a live WebSocket.
type fakeConn struct {
	mu       sync.Mutex
	open     bool
	inFlight int
	avgFPS   float64
	sent     [][]byte
	closed   int

	// When set, WaitIdle blocks until the channel is closed.
	idleGate chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (f *fakeConn) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) AddInFlight() {
	f.mu.Lock()
	f.inFlight++
	f.mu.Unlock()
}

func (f *fakeConn) ReleaseInFlight() {
	f.mu.Lock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	f.mu.Unlock()
}

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return errors.New("closed")
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeConn) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

func (f *fakeConn) AverageFPS() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.avgFPS
}

func (f *fakeConn) WaitIdle(ctx context.Context, timeout time.Duration) bool {
	if f.idleGate != nil {
		select {
		case <-f.idleGate:
		case <-time.After(timeout):
			return false
		case <-ctx.Done():
		}
	}
	f.mu.Lock()
	f.inFlight = 0
	f.mu.Unlock()
	return true
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed++
	return nil
}

// fakeDialer hands out fakeConns and records the batch handler so tests
// can inject detection batches as if they arrived from the wire.
type fakeDialer struct {
	mu      sync.Mutex
	conns   []*fakeConn
	handler func(ctx context.Context, batch domain.DetectionBatch)
	err     error
}

func (d *fakeDialer) dial(_ context.Context, handler func(ctx context.Context, batch domain.DetectionBatch)) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	d.handler = handler
	return conn, nil
}

func (d *fakeDialer) deliver(batch domain.DetectionBatch) {
	d.mu.Lock()
	handler := d.handler
	conn := d.conns[len(d.conns)-1]
	d.mu.Unlock()
	handler(context.Background(), batch)
	conn.ReleaseInFlight()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) current() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// fakeProvider simulates the camera subsystem.
type fakeProvider struct {
	mu      sync.Mutex
	devices []domain.CameraDevice
	failIDs map[string]bool
	opened  []string
}

func (p *fakeProvider) Devices(context.Context) ([]domain.CameraDevice, error) {
	return p.devices, nil
}

func (p *fakeProvider) Open(_ context.Context, deviceID string) (camera.Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIDs[deviceID] {
		return nil, errors.New("permission denied")
	}
	p.opened = append(p.opened, deviceID)
	return &fakeSource{}, nil
}

type fakeSource struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeSource) Grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeNotifier counts feedback cues.
type fakeNotifier struct {
	mu      sync.Mutex
	cues    int
	haptics int
}

func (n *fakeNotifier) DetectionCue() {
	n.mu.Lock()
	n.cues++
	n.mu.Unlock()
}

func (n *fakeNotifier) HapticPulse() {
	n.mu.Lock()
	n.haptics++
	n.mu.Unlock()
}

func (n *fakeNotifier) cueCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cues
}

func (n *fakeNotifier) hapticCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.haptics
}

// fakeResolver resolves from a fixed product table.
type fakeResolver struct {
	products map[string]*domain.Product
}

func (r *fakeResolver) Resolve(_ context.Context, id string) (*domain.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, errors.New("product not found")
	}
	return product, nil
}

// fakeDrafts keeps drafts in a map.
type fakeDrafts struct {
	mu      sync.Mutex
	saved   map[string][]domain.LineItem
	deletes int
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{saved: make(map[string][]domain.LineItem)}
}

func (d *fakeDrafts) Save(_ context.Context, storeID string, items []domain.LineItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved[storeID] = items
	return nil
}

func (d *fakeDrafts) Load(_ context.Context, storeID string) ([]domain.LineItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saved[storeID], nil
}

func (d *fakeDrafts) savedItems(storeID string) []domain.LineItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saved[storeID]
}

func (d *fakeDrafts) Delete(_ context.Context, storeID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.saved, storeID)
	d.deletes++
	return nil
}

// fakeSubmitter records submissions.
type fakeSubmitter struct {
	mu    sync.Mutex
	err   error
	calls [][]domain.LineItem
}

func (s *fakeSubmitter) Create(_ context.Context, items []domain.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, items)
	return nil
}

// fakeSales records published sale events.
type fakeSales struct {
	mu     sync.Mutex
	events int
	total  float64
}

func (s *fakeSales) Publish(_ context.Context, _ string, _ []domain.LineItem, total float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++
	s.total = total
	return nil
}
