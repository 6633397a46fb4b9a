package score

// KeeperOptions tune the external scoring consumer.
type KeeperOptions struct {
	// DecayPerMinute drains the running total at this rate while it is
	// positive. Zero disables decay.
	DecayPerMinute float64
	// Cap bounds the running total. Zero disables the cap.
	Cap float64
	// EdgeTriggeredInstant makes instant events score only on the rising
	// edge of their name appearing in the frame event set. When false an
	// instant event scores every frame it is raised.
	EdgeTriggeredInstant bool
}

// Keeper integrates per-frame events into a running score. It is the
// in-process reference consumer for the pipeline's published events.
type Keeper struct {
	opts  KeeperOptions
	total float64
	// names raised last frame, for edge triggering
	prevRaised map[string]bool
}

func NewKeeper(opts KeeperOptions) *Keeper {
	return &Keeper{opts: opts, prevRaised: map[string]bool{}}
}

// Total returns the current running score.
func (k *Keeper) Total() float64 { return k.total }

// Apply folds one frame's events into the running total. Additive points
// accumulate; instant points apply once per raise (or once per rising
// edge when edge triggering is on). Returns the additive and instant sums
// applied this frame.
func (k *Keeper) Apply(events []Event, deltaTime float64) (additive, instant float64) {
	raised := map[string]bool{}
	for _, e := range events {
		a, i := e.Points(deltaTime)
		additive += a
		if e.Type != nil {
			name := e.Type.Name
			if k.opts.EdgeTriggeredInstant && !e.Type.Additive {
				if k.prevRaised[name] {
					i = 0
				}
			}
			raised[name] = true
		}
		instant += i
	}
	k.prevRaised = raised

	k.total += additive + instant

	if k.opts.DecayPerMinute > 0 && k.total > 0 {
		k.total -= k.opts.DecayPerMinute / 60 * deltaTime
		if k.total < 0 {
			k.total = 0
		}
	}
	if k.opts.Cap > 0 && k.total > k.opts.Cap {
		k.total = k.opts.Cap
	}
	return additive, instant
}
