package trigger

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/soocke/gamewatch-go/domain/score"
	"github.com/soocke/gamewatch-go/domain/signal"
	"github.com/soocke/gamewatch-go/domain/vision"
)

func fp(v float64) *float64 { return &v }
func sp(s string) *string   { return &s }

type fakeEnv struct {
	now          float64
	config       map[string]float64
	vars         map[string]*signal.WindowedVariable
	prev         map[string]float64
	types        map[string]*score.EventType
	captureReady bool
	matches      map[string]vision.Result
	fill         vision.Result
	matchCalls   int
}

func (f *fakeEnv) Now() float64 { return f.now }

func (f *fakeEnv) ConfigValue(name string) (float64, bool) {
	v, ok := f.config[name]
	return v, ok
}

func (f *fakeEnv) Variable(name string) (*signal.WindowedVariable, bool) {
	v, ok := f.vars[name]
	return v, ok
}

func (f *fakeEnv) PreviousTriggerValue(name string) (float64, bool) {
	v, ok := f.prev[name]
	return v, ok
}

func (f *fakeEnv) EventType(name string) (*score.EventType, bool) {
	t, ok := f.types[name]
	return t, ok
}

func (f *fakeEnv) CaptureReady() bool { return f.captureReady }

func (f *fakeEnv) MatchTemplate(template, region, filter string, div [4]float64) (vision.Result, error) {
	f.matchCalls++
	res, ok := f.matches[template]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", template)
	}
	return res, nil
}

func (f *fakeEnv) FillRatio(region, filter string, div [4]float64) (vision.Result, error) {
	if f.fill == nil {
		return nil, fmt.Errorf("no fill configured")
	}
	return f.fill, nil
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		config: map[string]float64{},
		vars:   map[string]*signal.WindowedVariable{},
		prev:   map[string]float64{},
		types:  map[string]*score.EventType{"x": {Name: "x", Points: 1}},
	}
}

func TestRun_ValuePipelineRaisesEvent(t *testing.T) {
	env := newFakeEnv()
	in := NewInterpreter(nil, env)
	program := func(literal float64) []Command {
		return []Command{
			{Cmd: "set_trigger_value", ValueSource: ValueSource{Literal: fp(literal)}},
			{Cmd: "multiply", ValueSource: ValueSource{Literal: fp(2)}},
			{Cmd: "if", MoreThan: fp(7), CaseTrue: []Command{
				{Cmd: "raise_event", Name: "x"},
			}},
		}
	}

	ctx, err := in.Run(program(5))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Events) != 1 || ctx.Events[0].Type.Name != "x" {
		t.Fatalf("events = %v, want exactly one 'x'", ctx.Events)
	}

	ctx, err = in.Run(program(1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Events) != 0 {
		t.Fatalf("events = %v, want none", ctx.Events)
	}
}

func TestRun_ReturnStopsEnclosingLists(t *testing.T) {
	env := newFakeEnv()
	in := NewInterpreter(nil, env)
	ctx, err := in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{Literal: fp(1)}},
		{Cmd: "if", Equals: fp(1), CaseTrue: []Command{
			{Cmd: "raise_event", Name: "x"},
			{Cmd: "return"},
			{Cmd: "raise_event", Name: "x"},
		}},
		{Cmd: "raise_event", Name: "x"}, // must not run either
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Events) != 1 {
		t.Fatalf("events = %d, want 1 (return must stop outer list too)", len(ctx.Events))
	}
}

func TestRun_UnknownCommandIsSkipped(t *testing.T) {
	env := newFakeEnv()
	in := NewInterpreter(nil, env)
	ctx, err := in.Run([]Command{
		{Cmd: "frobnicate"},
		{Cmd: "raise_event", Name: "x"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Events) != 1 {
		t.Fatalf("unknown command aborted the list: events=%d", len(ctx.Events))
	}
}

func TestRun_IfPrecedenceEqualsWins(t *testing.T) {
	env := newFakeEnv()
	in := NewInterpreter(nil, env)
	// equals matches, less_than would not; equals must win.
	ctx, err := in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{Literal: fp(5)}},
		{Cmd: "if", Equals: fp(5), LessThan: fp(0), CaseTrue: []Command{
			{Cmd: "raise_event", Name: "x"},
		}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Events) != 1 {
		t.Fatalf("equals comparator did not take precedence: events=%d", len(ctx.Events))
	}
}

func TestRun_ApplyValueFeedsVariable(t *testing.T) {
	env := newFakeEnv()
	env.vars["hp"] = signal.NewWindowedVariable(0, 0)
	env.now = 12.5
	in := NewInterpreter(nil, env)
	_, err := in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{Literal: fp(88)}},
		{Cmd: "apply_value_to_variable", Name: "hp"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v, ok := env.vars["hp"].Value(); !ok || v != 88 {
		t.Fatalf("variable value = %v ok=%v, want 88", v, ok)
	}
}

func TestRun_ApplyMissingValueResetsVariable(t *testing.T) {
	env := newFakeEnv()
	env.vars["hp"] = signal.NewWindowedVariable(0, 0)
	in := NewInterpreter(nil, env)
	in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{Literal: fp(88)}},
		{Cmd: "apply_value_to_variable", Name: "hp"},
	})
	// Staged value missing: variable must be reset, not left stale.
	_, err := in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{FromConfig: sp("absent")}},
		{Cmd: "apply_value_to_variable", Name: "hp"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := env.vars["hp"].Value(); ok {
		t.Fatal("variable survived a missing-signal update")
	}
}

func TestRun_UnknownVariableIsFatal(t *testing.T) {
	env := newFakeEnv()
	in := NewInterpreter(nil, env)
	_, err := in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{Literal: fp(1)}},
		{Cmd: "apply_value_to_variable", Name: "missing"},
	})
	if err == nil {
		t.Fatal("expected configuration error for unknown variable")
	}
}

func TestRun_MatchTemplateOnMatchAndTemplatedName(t *testing.T) {
	env := newFakeEnv()
	env.captureReady = true
	env.types["seen_orb"] = &score.EventType{Name: "seen_orb", Points: 3}
	env.matches = map[string]vision.Result{
		"orb": {"success": true, "template": "orb", "confidence": 0.97, "region": "zone"},
	}
	in := NewInterpreter(nil, env)
	ctx, err := in.Run([]Command{
		{Cmd: "match_template", Template: "orb", Region: "zone", OnMatch: []Command{
			{Cmd: "raise_event", Name: "seen_{template}"},
			{Cmd: "append_cv_result"},
		}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Events) != 1 || ctx.Events[0].Type.Name != "seen_orb" {
		t.Fatalf("events = %v, want one seen_orb", ctx.Events)
	}
	if len(ctx.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(ctx.Results))
	}
}

func TestRun_MatchSkippedWithoutCapture(t *testing.T) {
	env := newFakeEnv()
	env.captureReady = false
	in := NewInterpreter(nil, env)
	ctx, err := in.Run([]Command{
		{Cmd: "match_template", Template: "orb", Region: "zone", OnMatch: []Command{
			{Cmd: "raise_event", Name: "x"},
		}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if env.matchCalls != 0 || len(ctx.Events) != 0 {
		t.Fatalf("match ran without capture: calls=%d events=%d", env.matchCalls, len(ctx.Events))
	}
}

func TestRun_FillLabelAppend(t *testing.T) {
	env := newFakeEnv()
	env.captureReady = true
	env.fill = vision.Result{"region": "bar", "fill": 0.42}
	in := NewInterpreter(nil, env)
	ctx, err := in.Run([]Command{
		{Cmd: "get_region_fill_percentage", Region: "bar", Filter: "red"},
		{Cmd: "set_trigger_value", ValueSource: ValueSource{FromResult: sp("fill")}},
		{Cmd: "multiply", ValueSource: ValueSource{Literal: fp(100)}},
		{Cmd: "cast_to_int"},
		{Cmd: "set_cv_result_label", Format: "bar at {value}%"},
		{Cmd: "append_cv_result"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(ctx.Results))
	}
	if text := ctx.Results[0]["text"]; text != "bar at 42%" {
		t.Fatalf("label = %q, want 'bar at 42%%'", text)
	}
}

func TestRun_RaiseUnknownEventTypeIsFatal(t *testing.T) {
	env := newFakeEnv()
	in := NewInterpreter(nil, env)
	if _, err := in.Run([]Command{{Cmd: "raise_event", Name: "nope"}}); err == nil {
		t.Fatal("expected configuration error for unknown event type")
	}
}

func TestRun_ProportionalAmountFromStagedValue(t *testing.T) {
	env := newFakeEnv()
	env.types["dmg"] = &score.EventType{Name: "dmg", ProportionalTo: fp(200), Points: 10}
	in := NewInterpreter(nil, env)
	ctx, err := in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{Literal: fp(50)}},
		{Cmd: "raise_event", Name: "dmg"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ctx.Events[0].ScaledAmount(); got != 0.25 {
		t.Fatalf("scaled amount = %v, want 0.25", got)
	}
}

func TestRun_DeltaFromVariable(t *testing.T) {
	env := newFakeEnv()
	v := signal.NewWindowedVariable(0, 0)
	s1, s2 := 10.0, 4.0
	v.Update(&s1, 0)
	v.Update(&s2, 0.1)
	env.vars["hp"] = v
	env.types["hp_drop"] = &score.EventType{Name: "hp_drop", Points: 1}
	in := NewInterpreter(nil, env)
	ctx, err := in.Run([]Command{
		{Cmd: "set_trigger_value", ValueSource: ValueSource{DeltaFromVariable: sp("hp")}},
		{Cmd: "if", LessThan: fp(0), CaseTrue: []Command{
			{Cmd: "multiply", ValueSource: ValueSource{Literal: fp(-1)}},
			{Cmd: "raise_event", Name: "hp_drop"},
		}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ctx.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(ctx.Events))
	}
	if *ctx.Events[0].Amount != 6 {
		t.Fatalf("amount = %v, want 6", *ctx.Events[0].Amount)
	}
}

func TestValidate_RejectsAmbiguityAndBareIf(t *testing.T) {
	err := Validate([]Command{{
		Cmd:         "set_trigger_value",
		ValueSource: ValueSource{Literal: fp(1), FromConfig: sp("a")},
	}})
	if err == nil {
		t.Fatal("expected error for ambiguous value source")
	}
	if err := Validate([]Command{{Cmd: "if"}}); err == nil {
		t.Fatal("expected error for if without comparator")
	}
	if err := Validate([]Command{{Cmd: "if", Equals: fp(1), CaseTrue: []Command{{Cmd: "if"}}}}); err == nil {
		t.Fatal("expected nested validation error")
	}
}

func TestCommand_JSONDecoding(t *testing.T) {
	raw := `[
		{"cmd": "set_trigger_value", "value_from_variable": "hp"},
		{"cmd": "if", "more_than": 0.5, "case_true": [
			{"cmd": "raise_event", "name": "x", "value": 2}
		]},
		{"cmd": "match_template", "template": "orb", "region": "zone", "div": [0, 0.5, 0, 1]}
	]`
	var cmds []Command
	if err := json.Unmarshal([]byte(raw), &cmds); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmds[0].FromVariable == nil || *cmds[0].FromVariable != "hp" {
		t.Fatalf("value_from_variable not decoded: %+v", cmds[0])
	}
	if cmds[1].MoreThan == nil || *cmds[1].MoreThan != 0.5 {
		t.Fatalf("more_than not decoded: %+v", cmds[1])
	}
	if cmds[1].CaseTrue[0].Literal == nil || *cmds[1].CaseTrue[0].Literal != 2 {
		t.Fatalf("nested literal not decoded: %+v", cmds[1].CaseTrue[0])
	}
	if cmds[2].div() != ([4]float64{0, 0.5, 0, 1}) {
		t.Fatalf("div not decoded: %v", cmds[2].div())
	}
}
