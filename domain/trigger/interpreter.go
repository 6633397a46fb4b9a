package trigger

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/gamewatch-go/domain/score"
	"github.com/soocke/gamewatch-go/domain/signal"
	"github.com/soocke/gamewatch-go/domain/vision"
)

// Environment is what the frame cycle lends the interpreter for one
// evaluation: variables, config scalars, previous trigger values, event
// types and the vision engine.
type Environment interface {
	Now() float64
	ConfigValue(name string) (float64, bool)
	Variable(name string) (*signal.WindowedVariable, bool)
	PreviousTriggerValue(name string) (float64, bool)
	EventType(name string) (*score.EventType, bool)

	// CaptureReady reports whether a usable capture exists this frame.
	// When it does not, match commands degrade to "no matches".
	CaptureReady() bool
	MatchTemplate(template, region, filter string, div [4]float64) (vision.Result, error)
	FillRatio(region, filter string, div [4]float64) (vision.Result, error)
}

// Context is the per-evaluation mutable bag threaded through the command
// list. It is created fresh for each top-level run and never shared
// across frames.
type Context struct {
	Value    float64
	HasValue bool
	Events   []score.Event
	Results  []vision.Result
	Current  vision.Result
}

// Interpreter evaluates authored command lists. Evaluation is
// single-threaded, synchronous and depth-first.
type Interpreter struct {
	logger *slog.Logger
	env    Environment
}

func NewInterpreter(logger *slog.Logger, env Environment) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{logger: logger, env: env}
}

// Run evaluates one top-level command list with a fresh context and
// returns the accumulated events and results.
func (in *Interpreter) Run(commands []Command) (*Context, error) {
	ctx := &Context{}
	if _, err := in.eval(commands, ctx); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// eval walks one command list. A true stop return aborts the remainder of
// this list and every enclosing list up to the top-level invocation.
func (in *Interpreter) eval(commands []Command, ctx *Context) (stop bool, err error) {
	for _, cmd := range commands {
		switch cmd.Cmd {
		case "set_trigger_value":
			ctx.Value, ctx.HasValue = in.resolve(cmd, ctx)

		case "apply_value_to_variable":
			v, ok := in.env.Variable(cmd.Name)
			if !ok {
				return false, fmt.Errorf("apply_value_to_variable: unknown variable %q", cmd.Name)
			}
			var sample *float64
			if ctx.HasValue {
				val := ctx.Value
				sample = &val
			}
			v.Update(sample, in.env.Now())

		case "multiply":
			operand, ok := in.resolve(cmd, ctx)
			if !ok || !ctx.HasValue {
				ctx.HasValue = false
				continue
			}
			ctx.Value *= operand

		case "sum":
			operand, ok := in.resolve(cmd, ctx)
			if !ok || !ctx.HasValue {
				ctx.HasValue = false
				continue
			}
			ctx.Value += operand

		case "cast_to_int":
			if ctx.HasValue {
				ctx.Value = float64(int64(ctx.Value))
			}

		case "if":
			check, ok, err := in.evalCondition(cmd, ctx)
			if err != nil {
				return false, err
			}
			if ok && check {
				stop, err := in.eval(cmd.CaseTrue, ctx)
				if err != nil {
					return false, err
				}
				if stop {
					return true, nil
				}
			}

		case "return":
			return true, nil

		case "match_template":
			stop, err := in.evalMatch(cmd, ctx)
			if err != nil {
				return false, err
			}
			if stop {
				return true, nil
			}

		case "get_region_fill_percentage":
			if !in.env.CaptureReady() {
				continue
			}
			res, err := in.env.FillRatio(cmd.Region, cmd.Filter, cmd.div())
			if err != nil {
				return false, err
			}
			ctx.Current = res

		case "set_cv_result_label":
			if ctx.Current == nil {
				in.logger.Warn("set_cv_result_label with no current result")
				continue
			}
			ctx.Current["text"] = in.expand(cmd.Format, ctx)

		case "append_cv_result":
			if ctx.Current == nil {
				in.logger.Warn("append_cv_result with no current result")
				continue
			}
			ctx.Results = append(ctx.Results, ctx.Current)

		case "raise_event":
			if err := in.raiseEvent(cmd, ctx); err != nil {
				return false, err
			}

		case "debug":
			in.logger.Debug("trigger context",
				"value", ctx.Value, "has_value", ctx.HasValue,
				"events", len(ctx.Events), "results", len(ctx.Results),
				"current", ctx.Current)

		default:
			in.logger.Warn("unexpected command in trigger", "cmd", cmd.Cmd)
		}
	}
	return false, nil
}

// evalCondition resolves the comparison value and applies exactly one
// comparator, in fixed precedence: equals, then more_than, then
// less_than. Authoring more than one is ambiguous and logged.
func (in *Interpreter) evalCondition(cmd Command, ctx *Context) (check, ok bool, err error) {
	comparators := 0
	for _, c := range []*float64{cmd.Equals, cmd.MoreThan, cmd.LessThan} {
		if c != nil {
			comparators++
		}
	}
	if comparators == 0 {
		return false, false, fmt.Errorf("if without comparator")
	}
	if comparators > 1 {
		in.logger.Warn("if command has multiple comparators; using the first of equals/more_than/less_than")
	}

	value, ok := in.resolve(cmd, ctx)
	if !ok {
		return false, false, nil
	}
	switch {
	case cmd.Equals != nil:
		return value == *cmd.Equals, true, nil
	case cmd.MoreThan != nil:
		return value > *cmd.MoreThan, true, nil
	default:
		return value < *cmd.LessThan, true, nil
	}
}

// evalMatch runs one match command: each named template is matched and
// every successful match stages the result and evaluates on_match.
func (in *Interpreter) evalMatch(cmd Command, ctx *Context) (stop bool, err error) {
	if !in.env.CaptureReady() {
		return false, nil
	}
	for _, name := range cmd.templates() {
		res, err := in.env.MatchTemplate(name, cmd.Region, cmd.Filter, cmd.div())
		if err != nil {
			return false, err
		}
		if success, _ := res["success"].(bool); !success {
			continue
		}
		ctx.Current = res
		stop, err := in.eval(cmd.OnMatch, ctx)
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}
	return false, nil
}

func (in *Interpreter) raiseEvent(cmd Command, ctx *Context) error {
	name := in.expand(cmd.Name, ctx)
	et, ok := in.env.EventType(name)
	if !ok {
		return fmt.Errorf("raise_event: unknown event type %q", name)
	}
	var amount *float64
	if v, ok := in.resolve(cmd, ctx); ok {
		amount = &v
	}
	ctx.Events = append(ctx.Events, score.Event{Type: et, ID: cmd.ID, Amount: amount})
	return nil
}

// resolve applies the command's value source. A false return means the
// source had no value this frame (unpublished variable, missing result
// field), which is a runtime condition, not an authoring error.
func (in *Interpreter) resolve(cmd Command, ctx *Context) (float64, bool) {
	kind, err := cmd.active()
	if err != nil {
		// Validate rejects this at load; treat a slipped-through record
		// as having no value.
		in.logger.Warn("ambiguous value source", "cmd", cmd.Cmd)
		return 0, false
	}
	switch kind {
	case srcLiteral:
		return *cmd.Literal, true
	case srcTrigger:
		return in.env.PreviousTriggerValue(*cmd.FromTrigger)
	case srcConfig:
		return in.env.ConfigValue(*cmd.FromConfig)
	case srcVariable:
		v, ok := in.env.Variable(*cmd.FromVariable)
		if !ok {
			in.logger.Warn("unknown variable", "name", *cmd.FromVariable)
			return 0, false
		}
		return v.Value()
	case srcVariableDelta:
		v, ok := in.env.Variable(*cmd.DeltaFromVariable)
		if !ok {
			in.logger.Warn("unknown variable", "name", *cmd.DeltaFromVariable)
			return 0, false
		}
		return v.Delta()
	case srcResult:
		if ctx.Current == nil {
			return 0, false
		}
		return toFloat(ctx.Current[*cmd.FromResult])
	default:
		return ctx.Value, ctx.HasValue
	}
}

// expand substitutes {value} and {field} placeholders with the staged
// value and current result fields.
func (in *Interpreter) expand(format string, ctx *Context) string {
	if !strings.Contains(format, "{") {
		return format
	}
	out := format
	if ctx.HasValue {
		out = strings.ReplaceAll(out, "{value}", formatValue(ctx.Value))
	}
	for key, val := range ctx.Current {
		out = strings.ReplaceAll(out, "{"+key+"}", anyToString(val))
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func anyToString(v any) string {
	switch t := v.(type) {
	case float64:
		return formatValue(t)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
