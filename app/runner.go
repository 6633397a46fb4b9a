package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/soocke/gamewatch-go/statusapi"
)

// Runner drives the frame cycle at the configured tick rate and feeds
// the published frames into the score keeper and journal.
type Runner struct {
	c       *Container
	limiter *rate.Limiter

	start      time.Time
	lastStatus float64
	hasPolled  bool
}

func NewRunner(c *Container) *Runner {
	return &Runner{
		c:       c,
		limiter: rate.NewLimiter(rate.Limit(c.Config.TickRate), 1),
	}
}

// Run ticks until the context is cancelled. A tick error is an authoring
// bug and stops the run; everything recoverable is already handled
// inside the cycle.
func (r *Runner) Run(ctx context.Context) error {
	r.start = time.Now()
	r.c.Logger.Info("observation started", "tick_rate", r.c.Config.TickRate)
	for {
		if err := r.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.c.Logger.Info("observation stopped", "score", r.c.Keeper.Total())
				return nil
			}
			return err
		}
		now := time.Since(r.start).Seconds()
		if err := r.tick(now); err != nil {
			return err
		}
	}
}

func (r *Runner) tick(now float64) error {
	frame, err := r.c.Cycle.Tick(now)
	if err != nil {
		return fmt.Errorf("tick at %.3fs: %w", now, err)
	}

	additive, instant := r.c.Keeper.Apply(frame.Events, frame.DeltaTime)
	if additive != 0 || instant != 0 {
		r.c.Logger.Debug("score applied",
			"additive", additive, "instant", instant, "total", r.c.Keeper.Total())
	}

	if r.c.Journal != nil {
		if err := r.c.Journal.RecordFrame(now, frame.DeltaTime, frame.Events); err != nil {
			r.c.Logger.Warn("journal write failed", "error", err)
		}
	}

	r.pollStatus(now)
	return nil
}

// pollStatus fetches the configured status paths on the configured
// interval and exposes their numeric fields as config values named
// "<path>.<field>", so authored triggers can compare against them.
func (r *Runner) pollStatus(now float64) {
	if r.c.Status == nil || len(r.c.Profile.HTTPPaths) == 0 {
		return
	}
	if r.hasPolled && now-r.lastStatus < r.c.Config.StatusInterval {
		return
	}
	r.lastStatus = now
	r.hasPolled = true

	for name := range r.c.Profile.HTTPPaths {
		res := r.c.Status.Get(name)
		if statusapi.Failed(res) {
			r.c.Logger.Debug("status poll failed", "path", name, "error", res["exception"])
			continue
		}
		for field, v := range res {
			if f, ok := v.(float64); ok {
				r.c.Cycle.SetConfigValue(name+"."+field, f)
			}
		}
	}
}
