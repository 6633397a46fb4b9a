package score

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestEvent_AdditiveDurationPoints(t *testing.T) {
	et := &EventType{Name: "hold", Additive: true, Duration: fp(1), Points: 10}
	e := Event{Type: et}
	additive, instant := e.Points(0.5)
	if additive != 5.0 || instant != 0 {
		t.Fatalf("points = (%v,%v), want (5,0)", additive, instant)
	}
}

func TestEvent_InstantPoints(t *testing.T) {
	et := &EventType{Name: "hit", Points: 7}
	additive, instant := Event{Type: et}.Points(0.25)
	if additive != 0 || instant != 7 {
		t.Fatalf("points = (%v,%v), want (0,7)", additive, instant)
	}
}

func TestEvent_ProportionalScaling(t *testing.T) {
	et := &EventType{Name: "damage", ProportionalTo: fp(200), Points: 10}
	e := Event{Type: et, Amount: fp(50)}
	if got := e.ScaledAmount(); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("scaled amount = %v, want 0.25", got)
	}
	_, instant := e.Points(1)
	if math.Abs(instant-2.5) > 1e-9 {
		t.Fatalf("instant = %v, want 2.5", instant)
	}
}

func TestEvent_DefaultAmountIsOne(t *testing.T) {
	et := &EventType{Name: "tick", ProportionalTo: fp(4), Points: 8}
	_, instant := Event{Type: et}.Points(1)
	if instant != 2 {
		t.Fatalf("instant = %v, want 2 (amount defaulting to 1)", instant)
	}
}

func TestEvent_NoTypeNoPoints(t *testing.T) {
	additive, instant := Event{}.Points(1)
	if additive != 0 || instant != 0 {
		t.Fatalf("typeless event scored (%v,%v)", additive, instant)
	}
}

func TestKeeper_AdditiveAccumulatesAcrossFrames(t *testing.T) {
	et := &EventType{Name: "hold", Additive: true, Duration: fp(1), Points: 10}
	k := NewKeeper(KeeperOptions{})
	for i := 0; i < 4; i++ {
		k.Apply([]Event{{Type: et}}, 0.5)
	}
	if math.Abs(k.Total()-20) > 1e-9 {
		t.Fatalf("total = %v, want 20", k.Total())
	}
}

func TestKeeper_EdgeTriggeredInstant(t *testing.T) {
	et := &EventType{Name: "hit", Points: 5}
	k := NewKeeper(KeeperOptions{EdgeTriggeredInstant: true})
	k.Apply([]Event{{Type: et}}, 0.1)
	k.Apply([]Event{{Type: et}}, 0.1) // still held: no re-score
	if k.Total() != 5 {
		t.Fatalf("total = %v, want 5 after held condition", k.Total())
	}
	k.Apply(nil, 0.1) // condition drops
	k.Apply([]Event{{Type: et}}, 0.1)
	if k.Total() != 10 {
		t.Fatalf("total = %v, want 10 after rising edge", k.Total())
	}
}

func TestKeeper_LevelTriggeredInstant(t *testing.T) {
	et := &EventType{Name: "hit", Points: 5}
	k := NewKeeper(KeeperOptions{})
	k.Apply([]Event{{Type: et}}, 0.1)
	k.Apply([]Event{{Type: et}}, 0.1)
	if k.Total() != 10 {
		t.Fatalf("total = %v, want 10 with level-triggered instants", k.Total())
	}
}

func TestKeeper_DecayAndCap(t *testing.T) {
	et := &EventType{Name: "hit", Points: 100}
	k := NewKeeper(KeeperOptions{DecayPerMinute: 60, Cap: 50})
	k.Apply([]Event{{Type: et}}, 1)
	if k.Total() != 50 {
		t.Fatalf("total = %v, want cap 50", k.Total())
	}
	k.Apply(nil, 30) // 30s of decay at 1/s
	if math.Abs(k.Total()-20) > 1e-9 {
		t.Fatalf("total = %v, want 20 after decay", k.Total())
	}
}
