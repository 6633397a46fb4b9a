// Package cycle runs the per-frame pipeline: refresh the target rect,
// snapshot capture and memory, evaluate the configured trigger lists and
// publish the frame's events and results.
package cycle

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/soocke/gamewatch-go/domain/geometry"
	"github.com/soocke/gamewatch-go/domain/score"
	"github.com/soocke/gamewatch-go/domain/signal"
	"github.com/soocke/gamewatch-go/domain/trigger"
	"github.com/soocke/gamewatch-go/domain/vision"
)

// State names the phase a tick is in. The cycle is single-threaded; the
// state exists for logging and tests, not for synchronization.
type State int

const (
	StateIdle State = iota
	StateRefreshingTarget
	StateCapturing
	StateEvaluating
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshingTarget:
		return "refreshing_target"
	case StateCapturing:
		return "capturing"
	case StateEvaluating:
		return "evaluating"
	case StatePublished:
		return "published"
	default:
		return "unknown"
	}
}

// Locator yields the current anchor rect and focus flag of the observed
// target. ok is false when the target cannot be found this tick; that is
// a recoverable condition, never an error.
type Locator interface {
	Locate() (rect geometry.Rect, focused bool, ok bool)
}

// MemoryReader resolves a named pointer chain in the observed process.
// Any failure reports ok=false.
type MemoryReader interface {
	ReadFloat(pointer string) (float64, bool)
}

// FrameData is what one tick publishes to the consumer. It is discarded
// at the start of the next tick.
type FrameData struct {
	Events    []score.Event
	Results   []vision.Result
	DeltaTime float64
}

type namedTrigger struct {
	name     string
	commands []trigger.Command
}

type pointerBinding struct {
	pointer  string
	variable string
}

// Options carry the external collaborators of a frame cycle. Engine and
// Memory may be nil when the profile configures no CV or no pointers.
type Options struct {
	Logger  *slog.Logger
	Engine  *vision.Engine
	Locator Locator
	Memory  MemoryReader
	// StillImage substitutes a reference screenshot for live capture,
	// used when tuning profiles offline.
	StillImage string
}

// FrameCycle owns all per-run mutable state: the smoothing variables,
// trigger value history and the vision engine's caches. One instance per
// observed target, never shared across goroutines.
type FrameCycle struct {
	logger  *slog.Logger
	engine  *vision.Engine
	locator Locator
	memory  MemoryReader
	still   string

	variables  map[string]*signal.WindowedVariable
	configVals map[string]float64
	eventTypes map[string]*score.EventType
	filters    map[string]vision.FilterSpec
	triggers   []namedTrigger
	bindings   []pointerBinding

	interp *trigger.Interpreter
	newID  func() string

	state      State
	now        float64
	lastTick   float64
	hasLast    bool
	anchor     geometry.Rect
	hasAnchor  bool
	focused    bool
	captureOK  bool
	prevValues map[string]float64
}

func New(opts Options) *FrameCycle {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &FrameCycle{
		logger:     logger,
		engine:     opts.Engine,
		locator:    opts.Locator,
		memory:     opts.Memory,
		still:      opts.StillImage,
		variables:  map[string]*signal.WindowedVariable{},
		configVals: map[string]float64{},
		eventTypes: map[string]*score.EventType{},
		filters:    map[string]vision.FilterSpec{},
		newID:      uuid.NewString,
		prevValues: map[string]float64{},
	}
	c.interp = trigger.NewInterpreter(logger, c)
	return c
}

func (c *FrameCycle) AddVariable(name string, v *signal.WindowedVariable) {
	c.variables[name] = v
}

func (c *FrameCycle) SetConfigValue(name string, v float64) {
	c.configVals[name] = v
}

func (c *FrameCycle) AddEventType(t *score.EventType) {
	c.eventTypes[t.Name] = t
}

func (c *FrameCycle) AddFilter(name string, f vision.FilterSpec) {
	c.filters[name] = f
}

// AddTrigger appends one named command list. Lists run in registration
// order each tick; a list's final staged value is visible to later lists
// in the same tick and to every list in following ticks.
func (c *FrameCycle) AddTrigger(name string, commands []trigger.Command) error {
	if err := trigger.Validate(commands); err != nil {
		return fmt.Errorf("trigger %q: %w", name, err)
	}
	c.triggers = append(c.triggers, namedTrigger{name: name, commands: commands})
	return nil
}

// BindPointer feeds a named memory pointer into a smoothing variable on
// every tick.
func (c *FrameCycle) BindPointer(pointer, variable string) error {
	if _, ok := c.variables[variable]; !ok {
		return fmt.Errorf("pointer %q bound to unknown variable %q", pointer, variable)
	}
	c.bindings = append(c.bindings, pointerBinding{pointer: pointer, variable: variable})
	return nil
}

// State returns the phase of the current or last tick.
func (c *FrameCycle) State() State { return c.state }

// Focused reports whether the target had input focus on the last tick.
func (c *FrameCycle) Focused() bool { return c.focused }

// Tick runs one full frame: refresh target, capture and memory snapshot,
// trigger evaluation, publish. The returned error is an authoring or
// programming error and means this tick's evaluation is void; losing the
// target, a failed capture or an unreadable pointer are not errors.
func (c *FrameCycle) Tick(now float64) (*FrameData, error) {
	c.now = now
	deltaTime := 0.0
	if c.hasLast {
		deltaTime = now - c.lastTick
	}

	c.refreshTarget()
	if err := c.snapshot(); err != nil {
		c.state = StateIdle
		return nil, err
	}

	frame, err := c.evaluate(deltaTime)
	if err != nil {
		c.state = StateIdle
		return nil, err
	}

	c.state = StatePublished
	c.lastTick = now
	c.hasLast = true
	c.state = StateIdle
	return frame, nil
}

func (c *FrameCycle) refreshTarget() {
	c.state = StateRefreshingTarget
	if c.locator == nil {
		return
	}
	rect, focused, ok := c.locator.Locate()
	c.focused = ok && focused
	if ok {
		if !c.hasAnchor || rect != c.anchor {
			c.logger.Info("target rect changed", "rect", rect)
		}
		c.anchor = rect
		c.hasAnchor = true
	}
	if c.engine != nil && c.hasAnchor {
		c.engine.SetAnchor(c.anchor, ok)
	}
}

// snapshot takes the frame's capture and feeds the bound memory pointers
// into their variables. A failed grab or unreadable pointer degrades to
// absent data; the error return is reserved for authoring mistakes.
func (c *FrameCycle) snapshot() error {
	c.state = StateCapturing
	c.captureOK = false
	if c.engine != nil && c.engine.Configured() {
		ok, err := c.engine.Capture(nil, c.still)
		if err != nil {
			return err
		}
		c.captureOK = ok
	}

	for _, b := range c.bindings {
		var sample *float64
		if c.memory != nil {
			if v, ok := c.memory.ReadFloat(b.pointer); ok {
				sample = &v
			}
		}
		c.variables[b.variable].Update(sample, c.now)
	}
	return nil
}

func (c *FrameCycle) evaluate(deltaTime float64) (*FrameData, error) {
	c.state = StateEvaluating
	frame := &FrameData{DeltaTime: deltaTime}
	seen := map[string]bool{}
	for _, tr := range c.triggers {
		ctx, err := c.interp.Run(tr.commands)
		if err != nil {
			return nil, fmt.Errorf("trigger %q: %w", tr.name, err)
		}
		if ctx.HasValue {
			c.prevValues[tr.name] = ctx.Value
		} else {
			delete(c.prevValues, tr.name)
		}
		for _, e := range ctx.Events {
			if e.ID == "" {
				e.ID = c.newID()
			} else if seen[e.ID] {
				return nil, fmt.Errorf("trigger %q: duplicate event id %q in one frame", tr.name, e.ID)
			}
			seen[e.ID] = true
			frame.Events = append(frame.Events, e)
		}
		frame.Results = append(frame.Results, ctx.Results...)
	}
	return frame, nil
}

// Environment implementation lent to the trigger interpreter.

func (c *FrameCycle) Now() float64 { return c.now }

func (c *FrameCycle) ConfigValue(name string) (float64, bool) {
	v, ok := c.configVals[name]
	return v, ok
}

func (c *FrameCycle) Variable(name string) (*signal.WindowedVariable, bool) {
	v, ok := c.variables[name]
	return v, ok
}

func (c *FrameCycle) PreviousTriggerValue(name string) (float64, bool) {
	v, ok := c.prevValues[name]
	return v, ok
}

func (c *FrameCycle) EventType(name string) (*score.EventType, bool) {
	t, ok := c.eventTypes[name]
	return t, ok
}

func (c *FrameCycle) CaptureReady() bool { return c.captureOK }

func (c *FrameCycle) MatchTemplate(template, region, filter string, div [4]float64) (vision.Result, error) {
	f, err := c.filterSpec(filter)
	if err != nil {
		return nil, err
	}
	return c.engine.MatchTemplate(template, region, f, div)
}

func (c *FrameCycle) FillRatio(region, filter string, div [4]float64) (vision.Result, error) {
	f, err := c.filterSpec(filter)
	if err != nil {
		return nil, err
	}
	return c.engine.FillRatio(region, f, div)
}

func (c *FrameCycle) filterSpec(name string) (vision.FilterSpec, error) {
	if name == "" {
		return vision.FilterSpec{}, nil
	}
	f, ok := c.filters[name]
	if !ok {
		return vision.FilterSpec{}, fmt.Errorf("unknown filter %q", name)
	}
	return f, nil
}
