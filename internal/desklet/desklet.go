// Package desklet runs the quote update cycle: fetch, render, publish and
// re-arm the timer, and reacts to settings changes.
package desklet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"yfquotes/internal/config"
	"yfquotes/internal/provider"
	"yfquotes/internal/render"
	"yfquotes/internal/schedule"
)

// Controller owns the update cycle of one desklet instance.
// At most one fetch is in flight at any time.
type Controller struct {
	src       provider.Source
	logger    logrus.FieldLogger
	now       func() time.Time
	publish   func(render.Tree)
	onError   func(error)
	delayUnit time.Duration

	group singleflight.Group

	mu       sync.Mutex
	ctx      context.Context
	settings config.Settings
	gen      uint64
	done     uint64
	pending  *schedule.Token
	last     *provider.Result
	tree     render.Tree
	closed   bool
}

type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock sets the time source used for rendering.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithPublisher sets the function that receives every rendered tree.
func WithPublisher(publish func(render.Tree)) Option {
	return func(c *Controller) { c.publish = publish }
}

// WithErrorHandler sets the function that receives update failures.
func WithErrorHandler(onError func(error)) Option {
	return func(c *Controller) { c.onError = onError }
}

// WithDelayUnit sets the length of one delayMinutes step. Defaults to a minute.
func WithDelayUnit(d time.Duration) Option {
	return func(c *Controller) { c.delayUnit = d }
}

// New creates a controller for settings. Nothing is fetched until Start.
func New(src provider.Source, settings config.Settings, opts ...Option) (*Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	c := &Controller{
		src:       src,
		logger:    logrus.StandardLogger(),
		now:       time.Now,
		publish:   func(render.Tree) {},
		onError:   func(error) {},
		delayUnit: time.Minute,
		ctx:       context.Background(),
		settings:  settings,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start runs the first update. Every fetch from then on, timer driven or
// not, runs under ctx, and the timer stops once ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	return c.Update(ctx)
}

// Update fetches, renders and publishes, then schedules the next update.
// Calls made while an update is running share it. ctx only bounds how long the
// caller waits; the fetch runs under the context passed to Start.
//
// Update returns once a cycle for the current settings has completed. A cycle
// that finished while the settings were being changed does not count.
func (c *Controller) Update(ctx context.Context) error {
	for {
		ch := c.group.DoChan("update", func() (any, error) {
			c.mu.Lock()
			runCtx := c.ctx
			c.mu.Unlock()
			return nil, c.cycle(runCtx)
		})

		var err error
		select {
		case r := <-ch:
			err = r.Err
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		current := c.closed || c.done == c.gen
		c.mu.Unlock()
		if current {
			return err
		}
	}
}

func (c *Controller) cycle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		settings, gen := c.settings, c.gen
		c.pending.Cancel()
		c.pending = nil
		c.mu.Unlock()

		symbols := settings.Symbols()
		log := c.logger.WithFields(logrus.Fields{
			"cycle":  uuid.NewString(),
			"source": c.src.Name(),
		})
		log.WithField("symbols", len(symbols)).Debug("fetching quotes")

		res, err := c.src.Fetch(ctx, symbols)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		if gen != c.gen {
			// settings changed while fetching; the result is stale
			c.mu.Unlock()
			continue
		}
		var tree render.Tree
		if err == nil {
			tree = render.Render(res, settings.DisplayOptions(), c.now())
			c.last = &res
			c.tree = tree
		}
		delay := time.Duration(settings.DelayMinutes) * c.delayUnit
		c.pending = schedule.Schedule(delay, c.tick)
		c.done = gen
		c.mu.Unlock()

		if err != nil {
			err = fmt.Errorf("cannot get stock quotes for symbols %s: %w", strings.Join(symbols, ","), err)
			log.WithError(err).WithField("retry_in", delay).Error("update failed")
			c.onError(err)
			return err
		}
		if res.HasError() {
			log.WithField("service_error", *res.Error).Info("quote service reported an error")
		}
		log.WithField("records", len(res.Records)).Debug("quotes rendered")
		c.publish(tree)
		return nil
	}
}

func (c *Controller) tick() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_ = c.Update(ctx)
}

// Apply switches to next. A change of size or transparency re-renders the
// current content; any other change cancels the pending update and fetches.
// When an update is already running, Apply waits for it and then fetches
// again with next.
func (c *Controller) Apply(ctx context.Context, next config.Settings) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	c.mu.Lock()
	change := config.Diff(c.settings, next)
	c.settings = next
	switch change {
	case config.ChangeNone:
		c.mu.Unlock()
		return nil
	case config.ChangeDisplay:
		c.tree = render.Resize(c.tree, next.DisplayOptions())
		tree, rendered := c.tree, c.last != nil
		c.mu.Unlock()
		c.logger.WithField("change", change).Debug("settings applied")
		if rendered {
			c.publish(tree)
		}
		return nil
	}
	c.gen++
	c.pending.Cancel()
	c.pending = nil
	c.mu.Unlock()

	c.logger.WithField("change", change).Debug("settings applied")
	return c.Update(ctx)
}

// Tree returns the last rendered tree and whether a render has happened yet.
func (c *Controller) Tree() (render.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree, c.last != nil
}

// Settings returns the settings currently in effect.
func (c *Controller) Settings() config.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Close cancels the pending update. Later updates are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending.Cancel()
	c.pending = nil
}
