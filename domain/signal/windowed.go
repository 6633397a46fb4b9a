// Package signal provides the time-windowed smoothing filter that turns
// jittery raw readings (memory values, fill ratios) into stable values
// with debounced deltas.
package signal

import "math"

// WindowedVariable buffers raw samples over a time window and publishes a
// stable value only once the buffered span covers the full window and all
// retained samples agree within a tolerance. Not safe for concurrent use;
// update from a single goroutine.
type WindowedVariable struct {
	window    float64 // seconds
	tolerance float64

	times  []float64
	values []float64

	value    float64
	hasValue bool
	delta    float64
	hasDelta bool
}

// NewWindowedVariable returns a variable with the given window length in
// seconds and tolerance. A non-positive tolerance means "any spread is
// acceptable"; a zero window publishes immediately.
func NewWindowedVariable(window, tolerance float64) *WindowedVariable {
	if window < 0 {
		window = 0
	}
	if tolerance <= 0 {
		tolerance = math.Inf(1)
	}
	return &WindowedVariable{window: window, tolerance: tolerance}
}

// Value returns the last published stable value.
func (v *WindowedVariable) Value() (float64, bool) { return v.value, v.hasValue }

// Delta returns the change between the two most recent published values.
// It is only valid for the tick on which Update published a new value.
func (v *WindowedVariable) Delta() (float64, bool) { return v.delta, v.hasDelta }

// Reset drops all history and the published value, as if the signal had
// never been observed.
func (v *WindowedVariable) Reset() {
	v.times = v.times[:0]
	v.values = v.values[:0]
	v.value, v.hasValue = 0, false
	v.delta, v.hasDelta = 0, false
}

// Update feeds one raw sample taken at ts (monotonic seconds). A nil
// sample means the signal was unavailable this tick and resets the
// variable entirely. The returned delta is only valid when ok is true,
// which requires a previously published value.
func (v *WindowedVariable) Update(sample *float64, ts float64) (delta float64, ok bool) {
	v.delta, v.hasDelta = 0, false

	if sample == nil {
		v.Reset()
		return 0, false
	}
	s := *sample

	// Ties overwrite the previous write for the same timestamp.
	if n := len(v.times); n > 0 && v.times[n-1] == ts {
		v.values[n-1] = s
	} else {
		v.times = append(v.times, ts)
		v.values = append(v.values, s)
	}

	// Not enough history to cover the window yet.
	if ts-v.times[0] < v.window {
		return 0, false
	}

	// Purge entries older than the window.
	cutoff := ts - v.window
	i := 0
	for i < len(v.times) && v.times[i] < cutoff {
		i++
	}
	if i > 0 {
		v.times = append(v.times[:0], v.times[i:]...)
		v.values = append(v.values[:0], v.values[i:]...)
	}

	// Debounce: one out-of-tolerance sample anywhere in the window
	// suppresses publication without touching the published value.
	for _, old := range v.values {
		if math.Abs(s-old) > v.tolerance {
			return 0, false
		}
	}

	var sum float64
	for _, val := range v.values {
		sum += val
	}
	mean := sum / float64(len(v.values))

	if v.hasValue {
		v.delta = mean - v.value
		v.hasDelta = true
	}
	v.value, v.hasValue = mean, true
	return v.delta, v.hasDelta
}
