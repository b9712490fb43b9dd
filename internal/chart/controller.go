// Package chart owns the bindings between named rendering surfaces and live
// chart instances produced by an external renderer.
package chart

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrSurfaceOccupied is returned by Render when the surface already hosts a chart.
	ErrSurfaceOccupied = errors.New("surface already has a bound chart")
	// ErrUnsupportedSeries is returned when a series cannot be drawn with the requested kind.
	ErrUnsupportedSeries = errors.New("unsupported series")
)

// SurfaceNotFoundError reports a render target absent from the current view.
type SurfaceNotFoundError struct {
	Surface string
}

func (e *SurfaceNotFoundError) Error() string {
	return fmt.Sprintf("surface %q not found", e.Surface)
}

// IsSurfaceNotFound reports whether err is a SurfaceNotFoundError.
func IsSurfaceNotFound(err error) bool {
	var se *SurfaceNotFoundError
	return errors.As(err, &se)
}

// Renderer is the charting library: it draws a spec onto a surface.
type Renderer interface {
	Bind(surface string, spec Spec) (Instance, error)
}

// Instance is a live chart drawn by a Renderer.
type Instance interface {
	Destroy() error
}

// Surfaces answers which render targets exist in the current view.
type Surfaces interface {
	Has(surface string) bool
}

// SurfaceSet is a fixed set of surface names.
type SurfaceSet map[string]struct{}

// NewSurfaceSet builds a SurfaceSet from names, ignoring empty ones.
func NewSurfaceSet(names ...string) SurfaceSet {
	set := make(SurfaceSet, len(names))
	for _, name := range names {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// Has implements Surfaces.
func (s SurfaceSet) Has(surface string) bool {
	_, ok := s[surface]
	return ok
}

type binding struct {
	instance Instance
	spec     Spec
}

// Controller keeps at most one live instance per surface.
type Controller struct {
	mu       sync.Mutex
	renderer Renderer
	surfaces Surfaces
	theme    Theme
	bound    map[string]*binding
	logger   zerolog.Logger
}

// NewController creates a controller drawing through renderer onto surfaces.
func NewController(renderer Renderer, surfaces Surfaces, theme Theme, logger zerolog.Logger) *Controller {
	return &Controller{
		renderer: renderer,
		surfaces: surfaces,
		theme:    theme,
		bound:    make(map[string]*binding),
		logger:   logger.With().Str("component", "chart").Logger(),
	}
}

// Render binds a new chart for series on surface. It fails without side
// effects when the surface is missing, occupied, or the series does not match
// kind.
func (c *Controller) Render(surface string, series any, kind Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderLocked(surface, series, kind)
}

// Refresh replaces whatever is bound to surface with a chart for series.
// Calling it repeatedly leaves exactly one bound instance.
func (c *Controller) Refresh(surface string, series any, kind Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyLocked(surface)
	return c.renderLocked(surface, series, kind)
}

// Destroy tears down the chart bound to surface, if any.
func (c *Controller) Destroy(surface string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyLocked(surface)
}

// DestroyAll tears down every bound chart. Used when the view unmounts.
func (c *Controller) DestroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for surface := range c.bound {
		c.destroyLocked(surface)
	}
}

// HasSurface reports whether the current view offers surface.
func (c *Controller) HasSurface(surface string) bool {
	return c.surfaces != nil && c.surfaces.Has(surface)
}

// Spec returns the spec bound to surface.
func (c *Controller) Spec(surface string) (Spec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bound[surface]
	if !ok {
		return Spec{}, false
	}
	return b.spec, true
}

// Bound lists the surfaces that currently host a chart, sorted.
func (c *Controller) Bound() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.bound))
	for surface := range c.bound {
		out = append(out, surface)
	}
	sort.Strings(out)
	return out
}

func (c *Controller) renderLocked(surface string, series any, kind Kind) error {
	if c.surfaces == nil || !c.surfaces.Has(surface) {
		err := &SurfaceNotFoundError{Surface: surface}
		c.logger.Warn().Str("surface", surface).Msg("render skipped, surface not in view")
		return err
	}
	if _, ok := c.bound[surface]; ok {
		return fmt.Errorf("%w: %s", ErrSurfaceOccupied, surface)
	}

	spec, err := Build(series, kind, c.theme)
	if err != nil {
		c.logger.Warn().Err(err).Str("surface", surface).Msg("render skipped")
		return err
	}

	instance, err := c.renderer.Bind(surface, spec)
	if err != nil {
		return fmt.Errorf("bind %s: %w", surface, err)
	}
	c.bound[surface] = &binding{instance: instance, spec: spec}
	c.logger.Debug().Str("surface", surface).Str("kind", string(kind)).Msg("chart bound")
	return nil
}

func (c *Controller) destroyLocked(surface string) {
	b, ok := c.bound[surface]
	if !ok {
		return
	}
	delete(c.bound, surface)
	if b.instance == nil {
		return
	}
	if err := b.instance.Destroy(); err != nil {
		c.logger.Warn().Err(err).Str("surface", surface).Msg("chart destroy failed")
	}
}
