// Package restore brings a freshly loaded chapter back to the position the
// host persisted, then reveals the content.
package restore

import (
	"fmt"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/location"
	"github.com/dgallion1/folio/internal/session"
)

// Pager covers the whole-layout jumps. *pagination.Controller implements it.
type Pager interface {
	JumpToEnd()
	ScrollToFraction(f float64) error
}

// Controller runs the restore sequence once. Whatever happens, it ends with
// the content visible and the restoring flag cleared.
type Controller struct {
	ctx     *session.Context
	surface layout.Surface
	codec   *address.Codec
	tracker *location.Tracker
	pager   Pager

	started bool
	done    bool
}

func New(ctx *session.Context, surface layout.Surface, codec *address.Codec, tracker *location.Tracker, pager Pager) *Controller {
	return &Controller{ctx: ctx, surface: surface, codec: codec, tracker: tracker, pager: pager}
}

// Done reports whether the sequence has finished.
func (c *Controller) Done() bool { return c.done }

// Start schedules the restore after the settle delay. Without a target the
// content is revealed at once. Later calls are ignored.
func (c *Controller) Start(target address.Target) {
	if c.started {
		return
	}
	c.started = true
	c.ctx.Log.Info("restore scheduled", "target", target.Kind.String())
	if target.Kind == address.TargetNone {
		c.finish()
		return
	}
	c.ctx.Sched.After(c.ctx.Tuning.RestoreDelay, func() { c.run(target) })
}

func (c *Controller) run(t address.Target) {
	defer c.finish()
	defer func() {
		if r := recover(); r != nil {
			c.ctx.Log.Error("restore panicked", "target", t.Kind.String(), "panic", fmt.Sprint(r))
		}
	}()

	var err error
	switch t.Kind {
	case address.TargetEnd:
		c.pager.JumpToEnd()
	case address.TargetPoint, address.TargetRange:
		err = c.tracker.RevealPoint(t.Point)
	case address.TargetLegacyPath:
		err = c.tracker.RevealPath(t.Path)
	case address.TargetLegacyPercent:
		err = c.pager.ScrollToFraction(t.Fraction)
	case address.TargetAnchor:
		el := c.codec.Document().ElementByID(t.Anchor)
		if el == nil {
			err = fmt.Errorf("%w: %q", address.ErrAnchorNotFound, t.Anchor)
			break
		}
		c.surface.ScrollIntoView(el)
	}
	if err != nil {
		c.ctx.Log.Warn("restore incomplete", "target", t.Kind.String(), "error", err)
		return
	}
	c.ctx.Log.Info("restored", "target", t.Kind.String(),
		"scrollLeft", c.surface.ScrollLeft(), "scrollTop", c.surface.ScrollTop())
}

func (c *Controller) finish() {
	c.ctx.Loading = false
	c.ctx.Restoring = false
	c.done = true
}
