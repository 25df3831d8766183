// Package poller keeps a local copy of the bunker snapshot fresh: it
// fetches on start, on a schedule and on demand, and recomputes the
// countdowns every second between fetches.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/display"
	"github.com/raffaelramalhorosa/bunker-status/internal/models"
	"github.com/raffaelramalhorosa/bunker-status/internal/ratelimit"
)

// ErrClosed is returned by Refresh after Close.
var ErrClosed = errors.New("poller: closed")

// ErrMalformed is recorded when a source returns a snapshot without a
// bunker list. The previous snapshot stays in place.
var ErrMalformed = errors.New("poller: response has no bunker list")

// Source produces bunker snapshots.
type Source interface {
	FetchStatus(ctx context.Context) (models.BunkerStatus, error)
}

// ThrottledError is returned by a manual Refresh issued before the local
// cooldown expired.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("wait %d seconds before making a new request", e.Seconds())
}

// Seconds is Wait rounded up to whole seconds.
func (e *ThrottledError) Seconds() int {
	return int((e.Wait + time.Second - 1) / time.Second)
}

// Row is one bunker with its current countdown label.
type Row struct {
	Bunker    models.Bunker
	Countdown string
}

// View is a consistent copy of the poller state.
type View struct {
	Status      models.BunkerStatus
	Rows        []Row // display order
	Loading     bool
	Err         error
	CanRefresh  bool
	NextRefresh time.Time
}

// Poller owns one snapshot and the timers that refresh it.
type Poller struct {
	src      Source
	schedule Schedule
	cooldown time.Duration
	tick     time.Duration
	logger   *slog.Logger
	now      func() time.Time
	onUpdate func(View)

	mu          sync.Mutex
	status      models.BunkerStatus
	rows        []Row
	loading     bool
	err         error
	nextAllowed time.Time
	nextRefresh time.Time
	started     bool
	closed      bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Poller.
type Option func(*Poller)

// WithSchedule sets when scheduled fetches run.
func WithSchedule(s Schedule) Option { return func(p *Poller) { p.schedule = s } }

// WithCooldown sets the minimum spacing between issued fetches.
func WithCooldown(d time.Duration) Option { return func(p *Poller) { p.cooldown = d } }

// WithTick sets how often countdowns are recomputed.
func WithTick(d time.Duration) Option { return func(p *Poller) { p.tick = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(p *Poller) { p.logger = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(p *Poller) { p.now = now } }

// OnUpdate registers fn to receive a View after every state change and
// every countdown tick. fn runs on poller goroutines and must not block.
func OnUpdate(fn func(View)) Option { return func(p *Poller) { p.onUpdate = fn } }

// New returns a stopped Poller.
func New(src Source, opts ...Option) (*Poller, error) {
	if src == nil {
		return nil, errors.New("poller: source required")
	}
	p := &Poller{
		src:      src,
		schedule: DefaultSchedule,
		cooldown: ratelimit.DefaultCooldown,
		tick:     time.Second,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		status:   models.BunkerStatus{Bunkers: []models.Bunker{}},
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.schedule.validate(); err != nil {
		return nil, err
	}
	if p.tick <= 0 {
		return nil, errors.New("poller: tick must be > 0")
	}
	return p, nil
}

// Start fetches once and then runs the refresh schedule and the countdown
// ticker until ctx is cancelled or Close is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.logger.Info("poller started", "interval", p.schedule.Interval, "minute", p.schedule.Minute)

	p.wg.Add(2)
	go p.scheduleLoop(ctx)
	go p.tickLoop(ctx)
}

// Close stops all timers and waits for them. Fetch results that arrive
// afterwards are discarded.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.logger.Info("poller stopped")
}

// Refresh fetches now. It is a no-op while another fetch is in flight and
// returns *ThrottledError inside the local cooldown.
func (p *Poller) Refresh(ctx context.Context) error {
	return p.fetch(ctx, true)
}

// CanRefresh reports whether a manual Refresh would be issued.
func (p *Poller) CanRefresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canRefreshLocked(p.now())
}

func (p *Poller) canRefreshLocked(now time.Time) bool {
	return !p.closed && !p.loading && !now.Before(p.nextAllowed)
}

// View returns a copy of the current state.
func (p *Poller) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := p.status
	status.Bunkers = append([]models.Bunker(nil), p.status.Bunkers...)
	return View{
		Status:      status,
		Rows:        append([]Row(nil), p.rows...),
		Loading:     p.loading,
		Err:         p.err,
		CanRefresh:  p.canRefreshLocked(p.now()),
		NextRefresh: p.nextRefresh,
	}
}

func (p *Poller) fetch(ctx context.Context, manual bool) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if manual {
			return ErrClosed
		}
		return nil
	}
	if p.loading {
		p.mu.Unlock()
		return nil
	}
	now := p.now()
	if now.Before(p.nextAllowed) {
		terr := &ThrottledError{Wait: p.nextAllowed.Sub(now)}
		if manual {
			p.err = terr
		}
		p.mu.Unlock()
		if !manual {
			p.logger.Debug("scheduled refresh skipped", "wait", terr.Wait)
			return nil
		}
		p.publish()
		return terr
	}
	p.loading = true
	p.err = nil
	p.nextAllowed = now.Add(p.cooldown)
	p.mu.Unlock()
	p.publish()

	status, err := p.src.FetchStatus(ctx)
	if err == nil && status.Bunkers == nil {
		err = ErrMalformed
	}

	p.mu.Lock()
	p.loading = false
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		p.err = err
	} else {
		p.status = status
	}
	p.rows = buildRows(p.status.Bunkers, p.now())
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("refresh failed", "error", err, "manual", manual)
	} else {
		p.logger.Info("refreshed", "bunkers", len(status.Bunkers), "source", status.Source)
	}
	p.publish()
	return err
}

func (p *Poller) scheduleLoop(ctx context.Context) {
	defer p.wg.Done()

	p.fetch(ctx, false)

	for {
		next := p.schedule.Next(p.now())
		p.mu.Lock()
		p.nextRefresh = next
		p.mu.Unlock()

		timer := time.NewTimer(next.Sub(p.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.fetch(ctx, false)
		}
	}
}

func (p *Poller) tickLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			p.rows = buildRows(p.status.Bunkers, p.now())
			p.mu.Unlock()
			p.publish()
		}
	}
}

func (p *Poller) publish() {
	if p.onUpdate == nil {
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	p.onUpdate(p.View())
}

func buildRows(bunkers []models.Bunker, now time.Time) []Row {
	sorted := display.Sort(bunkers)
	rows := make([]Row, len(sorted))
	for i, b := range sorted {
		rows[i] = Row{Bunker: b, Countdown: display.Countdown(b, now)}
	}
	return rows
}
