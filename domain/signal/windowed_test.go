package signal

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestWindowedVariable_PublishesMeanAfterFullWindow(t *testing.T) {
	v := NewWindowedVariable(1.0, 5.0)

	if _, ok := v.Update(fp(10), 0.0); ok {
		t.Fatal("delta before window filled")
	}
	if _, ok := v.Value(); ok {
		t.Fatal("value published before window filled")
	}
	v.Update(fp(12), 0.5)
	v.Update(fp(11), 1.0) // span now covers the window

	val, ok := v.Value()
	if !ok {
		t.Fatal("expected published value")
	}
	if want := (10.0 + 12.0 + 11.0) / 3.0; math.Abs(val-want) > 1e-9 {
		t.Fatalf("value = %v, want %v", val, want)
	}
}

func TestWindowedVariable_DeltaBetweenPublishedValues(t *testing.T) {
	v := NewWindowedVariable(1.0, 100.0)
	v.Update(fp(10), 0.0)
	v.Update(fp(10), 1.0) // publishes 10
	if _, ok := v.Delta(); ok {
		t.Fatal("delta on first publication")
	}
	d, ok := v.Update(fp(16), 2.0) // window retains {10@1, 16@2} -> mean 13
	if !ok {
		t.Fatal("expected delta")
	}
	if math.Abs(d-3.0) > 1e-9 {
		t.Fatalf("delta = %v, want 3", d)
	}
}

func TestWindowedVariable_OutOfToleranceSuppressesWithoutForgetting(t *testing.T) {
	v := NewWindowedVariable(1.0, 2.0)
	v.Update(fp(10), 0.0)
	v.Update(fp(10), 1.0)
	prev, _ := v.Value()

	if _, ok := v.Update(fp(50), 2.0); ok {
		t.Fatal("unstable sample produced a delta")
	}
	val, ok := v.Value()
	if !ok || val != prev {
		t.Fatalf("published value changed on unstable tick: %v ok=%v", val, ok)
	}
	if _, ok := v.Delta(); ok {
		t.Fatal("delta should be cleared on unstable tick")
	}
}

func TestWindowedVariable_NilResetsEverything(t *testing.T) {
	v := NewWindowedVariable(1.0, 100.0)
	v.Update(fp(5), 0.0)
	v.Update(fp(5), 1.0)
	if _, ok := v.Value(); !ok {
		t.Fatal("setup: expected published value")
	}
	v.Update(nil, 2.0)
	if _, ok := v.Value(); ok {
		t.Fatal("value survived signal loss")
	}
	// History must be gone too: the next sample starts a fresh window.
	if _, ok := v.Update(fp(5), 2.5); ok {
		t.Fatal("delta right after reset")
	}
	if _, ok := v.Value(); ok {
		t.Fatal("value published without covering the window after reset")
	}
}

func TestWindowedVariable_ZeroWindowPublishesImmediately(t *testing.T) {
	v := NewWindowedVariable(0, 0)
	v.Update(fp(3), 0.0)
	if val, ok := v.Value(); !ok || val != 3 {
		t.Fatalf("value = %v ok=%v, want 3", val, ok)
	}
	d, ok := v.Update(fp(5), 0.1)
	if !ok || d != 2 {
		t.Fatalf("delta = %v ok=%v, want 2", d, ok)
	}
}

func TestWindowedVariable_PurgeKeepsOnlyWindow(t *testing.T) {
	v := NewWindowedVariable(1.0, 100.0)
	v.Update(fp(0), 0.0)
	v.Update(fp(0), 0.5)
	v.Update(fp(0), 1.0)
	v.Update(fp(30), 5.0) // everything older than 4.0 is purged
	val, ok := v.Value()
	if !ok || val != 30 {
		t.Fatalf("value = %v ok=%v, want 30 (stale samples retained?)", val, ok)
	}
}

func TestWindowedVariable_TimestampTieOverwrites(t *testing.T) {
	v := NewWindowedVariable(0, 0)
	v.Update(fp(1), 0.0)
	v.Update(fp(9), 0.0)
	if val, ok := v.Value(); !ok || val != 9 {
		t.Fatalf("value = %v ok=%v, want 9", val, ok)
	}
}
