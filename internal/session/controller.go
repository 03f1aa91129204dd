package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/susatyo441/shop-vision/internal/accumulator"
	"github.com/susatyo441/shop-vision/internal/camera"
	"github.com/susatyo441/shop-vision/internal/cart"
	"github.com/susatyo441/shop-vision/internal/domain"
	"github.com/susatyo441/shop-vision/internal/sampler"
)

var (
	ErrProcessing    = errors.New("detections are still being processed")
	ErrSessionActive = errors.New("a capture session is active")
	ErrNoChannel     = errors.New("no detection channel")
)

// Conn is the slice of the detection channel the controller depends on.
// Consumers define this interface, not the WebSocket implementation.
type Conn interface {
	sampler.FrameSink
	InFlight() int
	AverageFPS() float64
	WaitIdle(ctx context.Context, timeout time.Duration) bool
	Close() error
}

// DialFunc establishes a fresh detection channel. The handler is invoked
// once per detection batch.
type DialFunc func(ctx context.Context, handler func(ctx context.Context, batch domain.DetectionBatch)) (Conn, error)

// Notifier surfaces feedback cues to the user.
type Notifier interface {
	DetectionCue() // audible beep when the detected scene changes
	HapticPulse()  // marks entry into the locked state
}

type nopNotifier struct{}

func (nopNotifier) DetectionCue() {}
func (nopNotifier) HapticPulse()  {}

// LogNotifier reports cues through the structured log. Used when no
// frontend feedback transport is wired.
type LogNotifier struct{}

func (LogNotifier) DetectionCue() { slog.Info("detection cue") }
func (LogNotifier) HapticPulse()  { slog.Info("haptic pulse") }

// DraftStore persists the accumulated cart between page visits.
type DraftStore interface {
	Save(ctx context.Context, storeID string, items []domain.LineItem) error
	Load(ctx context.Context, storeID string) ([]domain.LineItem, error)
	Delete(ctx context.Context, storeID string) error
}

// Submitter hands a finalized cart to the transaction service.
type Submitter interface {
	Create(ctx context.Context, items []domain.LineItem) error
}

// SalesPublisher emits a sales event after a successful submission.
type SalesPublisher interface {
	Publish(ctx context.Context, storeID string, items []domain.LineItem, total float64) error
}

// Options wires the controller's collaborators. Camera, Dial, Resolver,
// Sampler and Cart are required; the rest degrade gracefully when nil.
type Options struct {
	Camera   *camera.Manager
	Dial     DialFunc
	Resolver accumulator.CatalogResolver
	Sampler  *sampler.Sampler
	Cart     *cart.AccumulatedCart
	Notifier Notifier
	Drafts   DraftStore
	Submit   Submitter
	Sales    SalesPublisher
	StoreID  string

	MaxSessionDuration time.Duration
	LongPressThreshold time.Duration
	DrainTimeout       time.Duration

	Now func() time.Time
}

// Controller owns one capture page's session state: the machine, the
// camera handle, the detection channel and the timers that drive them.
// Lifecycle: NewController → Start → (Press/Release/AddMore/…)* → Dispose.
type Controller struct {
	camera   *camera.Manager
	dial     DialFunc
	acc      *accumulator.Accumulator
	sampler  *sampler.Sampler
	cart     *cart.AccumulatedCart
	notifier Notifier
	drafts   DraftStore
	submit   Submitter
	sales    SalesPublisher
	storeID  string

	drainTimeout time.Duration
	now          func() time.Time

	mu           sync.Mutex
	machine      *Machine
	conn         Conn
	stopSampling context.CancelFunc
	holdTimer    *time.Timer
	maxTimer     *time.Timer
	generation   uint64
	processing   bool
	lastFPS      float64
}

func NewController(opts Options) *Controller {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{
		camera:       opts.Camera,
		dial:         opts.Dial,
		acc:          accumulator.New(opts.Resolver),
		sampler:      opts.Sampler,
		cart:         opts.Cart,
		notifier:     notifier,
		drafts:       opts.Drafts,
		submit:       opts.Submit,
		sales:        opts.Sales,
		storeID:      opts.StoreID,
		drainTimeout: opts.DrainTimeout,
		now:          now,
		machine:      NewMachine(opts.MaxSessionDuration, opts.LongPressThreshold),
	}
}

// Start prepares the page: enumerates cameras, recovers a persisted draft
// and opens the initial detection channel.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.camera.Refresh(ctx); err != nil {
		return err
	}

	if c.drafts != nil {
		items, err := c.drafts.Load(ctx, c.storeID)
		switch {
		case err == nil && len(items) > 0:
			c.cart.Replace(items)
			slog.Info("recovered draft cart", "items", len(items))
		case err != nil && !errors.Is(err, context.Canceled):
			slog.Warn("draft recovery failed", "error", err)
		}
	}

	return c.openChannel(ctx)
}

// Press handles the capture control going down. From idle it starts a
// session; on a locked session it ends it.
func (c *Controller) Press(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.machine.Apply(EventPress, c.now()) {
	case EffectStartCapture:
		if err := c.beginCaptureLocked(ctx); err != nil {
			c.machine.Reset() // total failure leaves the page in idle
			return err
		}
	case EffectFinalize:
		c.finalizeLocked()
	}
	return nil
}

// Release handles the capture control coming up. A short press finishes
// the session; releasing a locked control does nothing.
func (c *Controller) Release(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Apply(EventRelease, c.now()) == EffectFinalize {
		c.finalizeLocked()
	}
	return nil
}

// AddMore re-arms the page for another session: fresh detection channel,
// cleared session snapshots, untouched accumulated cart.
func (c *Controller) AddMore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.processing {
		return ErrProcessing
	}
	switch c.machine.State() {
	case StateFinished:
		c.machine.Apply(EventRearm, c.now())
	case StateIdle:
		// Already armed; just refresh the channel and snapshots.
	default:
		return ErrSessionActive
	}

	c.acc.Reset()
	return c.openChannelLocked(ctx)
}

// HardReset additionally discards the accumulated cart and any persisted
// draft, regardless of what state the session was in.
func (c *Controller) HardReset(ctx context.Context) error {
	c.mu.Lock()
	c.stopSessionLocked()
	c.generation++ // invalidates any pending finalize
	c.machine.Reset()
	c.acc.Reset()
	c.cart.Clear()
	c.processing = false
	c.mu.Unlock()

	if c.drafts != nil {
		if err := c.drafts.Delete(ctx, c.storeID); err != nil {
			slog.Warn("draft delete failed", "error", err)
		}
	}

	return c.openChannel(ctx)
}

// Checkout submits the accumulated cart as a transaction. Failure is
// retryable: the cart is preserved so the user does not re-capture.
func (c *Controller) Checkout(ctx context.Context) error {
	c.mu.Lock()
	state := c.machine.State()
	processing := c.processing
	c.mu.Unlock()

	if state == StateCapturing || state == StateLocked {
		return ErrSessionActive
	}
	if processing {
		return ErrProcessing
	}

	items := c.cart.Items()
	if len(items) == 0 {
		return cart.ErrEmptyCart
	}
	total := c.cart.Total()

	if c.submit == nil {
		return errors.New("no transaction service configured")
	}
	if err := c.submit.Create(ctx, items); err != nil {
		return fmt.Errorf("transaction submission failed: %w", err)
	}

	if c.sales != nil {
		if err := c.sales.Publish(ctx, c.storeID, items, total); err != nil {
			slog.Warn("sales event publish failed", "error", err)
		}
	}
	if c.drafts != nil {
		if err := c.drafts.Delete(ctx, c.storeID); err != nil {
			slog.Warn("draft delete failed", "error", err)
		}
	}

	c.cart.Clear()
	c.acc.Reset()
	return nil
}

// Status is a snapshot of the page state for the frontend.
type Status struct {
	State        string            `json:"state"`
	Progress     float64           `json:"progress"`
	AverageFPS   float64           `json:"averageFPS"`
	InFlight     int               `json:"inFlight"`
	Processing   bool              `json:"processing"`
	SessionItems []domain.LineItem `json:"sessionItems"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		State:        c.machine.State().String(),
		Progress:     c.machine.Progress(c.now()),
		AverageFPS:   c.lastFPS,
		Processing:   c.processing,
		SessionItems: c.acc.Items(),
	}
	if c.conn != nil {
		status.AverageFPS = c.conn.AverageFPS()
		status.InFlight = c.conn.InFlight()
	}
	return status
}

// Dispose releases the camera and closes the detection channel
// unconditionally. Safe to call in any state.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSessionLocked()
	c.generation++
	if c.conn != nil {
		c.lastFPS = c.conn.AverageFPS()
		if err := c.conn.Close(); err != nil {
			slog.Warn("channel close failed", "error", err)
		}
		c.conn = nil
	}
}

func (c *Controller) openChannel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openChannelLocked(ctx)
}

// openChannelLocked replaces the detection channel with a fresh one. At
// most one connection is open per page instance.
func (c *Controller) openChannelLocked(ctx context.Context) error {
	if c.conn != nil {
		c.lastFPS = c.conn.AverageFPS()
		if err := c.conn.Close(); err != nil {
			slog.Warn("channel close failed", "error", err)
		}
		c.conn = nil
	}

	conn, err := c.dial(ctx, c.handleBatch)
	if err != nil {
		return fmt.Errorf("open detection channel failed: %w", err)
	}
	c.conn = conn
	return nil
}

// handleBatch runs on the channel's read loop.
func (c *Controller) handleBatch(ctx context.Context, batch domain.DetectionBatch) {
	if c.acc.ProcessBatch(ctx, batch) {
		c.notifier.DetectionCue()
	}
}

// beginCaptureLocked acquires the camera, starts sampling and arms the
// long-press and max-duration timers.
func (c *Controller) beginCaptureLocked(ctx context.Context) error {
	if c.conn == nil || !c.conn.IsOpen() {
		if err := c.openChannelLocked(ctx); err != nil {
			return err
		}
	}

	source, err := c.camera.Acquire(ctx)
	if err != nil {
		return err
	}

	sampleCtx, cancel := context.WithCancel(context.Background())
	c.stopSampling = cancel
	go c.sampler.Run(sampleCtx, source, c.conn)

	c.generation++
	gen := c.generation
	c.holdTimer = time.AfterFunc(c.machine.HoldThreshold(), func() { c.onTimer(gen, EventHoldElapsed) })
	c.maxTimer = time.AfterFunc(c.machine.MaxDuration(), func() { c.onTimer(gen, EventMaxElapsed) })
	return nil
}

// onTimer feeds a timer expiry into the machine, ignoring timers armed for
// a previous session.
func (c *Controller) onTimer(generation uint64, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}

	switch c.machine.Apply(event, c.now()) {
	case EffectLock:
		c.notifier.HapticPulse()
	case EffectFinalize:
		c.finalizeLocked()
	}
}

// finalizeLocked stops sampling and the timers immediately, releases the
// camera, and defers the cart merge until every in-flight frame is
// accounted for (or presumed lost after the drain timeout). Already-sent
// frames keep being processed until then.
func (c *Controller) finalizeLocked() {
	c.stopSessionLocked()
	c.processing = true

	conn := c.conn
	gen := c.generation
	go func() {
		if conn != nil {
			conn.WaitIdle(context.Background(), c.drainTimeout)
		}

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return // a hard reset superseded this session
		}
		items := c.acc.Items()
		c.cart.Merge(items)
		merged := c.cart.Items()
		c.processing = false
		if conn != nil {
			c.lastFPS = conn.AverageFPS()
		}
		c.mu.Unlock()

		if c.drafts != nil && len(items) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.drafts.Save(ctx, c.storeID, merged); err != nil {
				slog.Warn("draft save failed", "error", err)
			}
		}
	}()
}

// stopSessionLocked cancels the timers and the sampling loop and releases
// the camera device.
func (c *Controller) stopSessionLocked() {
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
	if c.maxTimer != nil {
		c.maxTimer.Stop()
		c.maxTimer = nil
	}
	if c.stopSampling != nil {
		c.stopSampling()
		c.stopSampling = nil
	}
	c.camera.Release()
}
