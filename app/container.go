// Package app assembles the observation pipeline from configuration and
// drives it at the configured tick rate.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/soocke/gamewatch-go/capture"
	"github.com/soocke/gamewatch-go/config"
	"github.com/soocke/gamewatch-go/domain/cycle"
	"github.com/soocke/gamewatch-go/domain/score"
	"github.com/soocke/gamewatch-go/domain/signal"
	"github.com/soocke/gamewatch-go/domain/vision"
	"github.com/soocke/gamewatch-go/journal"
	"github.com/soocke/gamewatch-go/memread"
	"github.com/soocke/gamewatch-go/statusapi"
	"github.com/soocke/gamewatch-go/target"
)

// Container assembles the frame cycle and its collaborators.
type Container struct {
	Config  *config.Config
	Profile *config.Profile
	Logger  *slog.Logger
	Cycle   *cycle.FrameCycle
	Keeper  *score.Keeper
	Journal *journal.Journal
	Status  *statusapi.Client

	memory *memread.Process
}

// BuildContainer constructs all components from the runtime config and
// the authored profile. Every error here is an authoring or environment
// problem that refuses the run.
func BuildContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Profile: profile, Logger: logger}

	var locator cycle.Locator
	if profile.TargetWindow != "" {
		w, err := target.NewWindow(logger, profile.TargetWindow)
		if err != nil {
			return nil, fmt.Errorf("target_window: %w", err)
		}
		locator = w
	} else {
		locator = target.NewMonitor()
	}

	engine, err := buildEngine(logger, profile, filepath.Dir(cfg.ProfilePath))
	if err != nil {
		return nil, err
	}

	opts := cycle.Options{
		Logger:     logger,
		Engine:     engine,
		Locator:    locator,
		StillImage: cfg.StillImage,
	}
	if len(profile.Pointers) > 0 {
		chains := map[string]memread.Chain{}
		for name, def := range profile.Pointers {
			chains[name] = memread.Chain{Module: def.Module, Base: def.Base, Offsets: def.Offsets, Type: def.Type}
		}
		c.memory = memread.NewProcess(logger, profile.ProcessName, chains)
		opts.Memory = c.memory
	}
	fc := cycle.New(opts)

	for name, def := range profile.Variables {
		fc.AddVariable(name, signal.NewWindowedVariable(def.BufferLength, def.Tolerance))
	}
	for name, v := range profile.Values {
		fc.SetConfigValue(name, v)
	}
	for _, e := range profile.Events {
		fc.AddEventType(&score.EventType{
			Name:           e.Name,
			Description:    e.Description,
			Additive:       e.Additive,
			ProportionalTo: e.ProportionalTo,
			Duration:       e.Duration,
			Points:         e.Points,
		})
	}
	for name, def := range profile.CV.Filters {
		spec, err := vision.ParseFilterSpec(def.Kind, def.Lower, def.Upper)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		fc.AddFilter(name, spec)
	}
	for _, name := range profile.TriggerNames() {
		if err := fc.AddTrigger(name, profile.Triggers[name]); err != nil {
			return nil, err
		}
	}
	for name, def := range profile.Pointers {
		if def.Variable == "" {
			continue
		}
		if err := fc.BindPointer(name, def.Variable); err != nil {
			return nil, err
		}
	}
	c.Cycle = fc

	c.Keeper = score.NewKeeper(score.KeeperOptions{
		DecayPerMinute:       cfg.DecayPerMinute,
		Cap:                  cfg.ScoreCap,
		EdgeTriggeredInstant: cfg.EdgeTriggered,
	})

	if cfg.JournalPath != "" {
		c.Journal, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
	}
	if cfg.StatusBaseURL != "" {
		c.Status = statusapi.NewClient(logger, cfg.StatusBaseURL, profile.HTTPPaths)
	}
	return c, nil
}

// Close releases the container's external resources.
func (c *Container) Close() {
	if c.Journal != nil {
		c.Journal.Close()
	}
	if c.memory != nil {
		c.memory.Close()
	}
}

func buildEngine(logger *slog.Logger, p *config.Profile, profileDir string) (*vision.Engine, error) {
	if len(p.CV.Regions) == 0 {
		return nil, nil
	}
	scaler, err := p.CV.Scaler()
	if err != nil {
		return nil, err
	}
	engine := vision.NewEngine(logger, capture.NewScreen())
	for name, rect := range p.CV.Regions {
		engine.AddRegion(vision.NewRegion(name, rect, scaler))
	}
	for name, def := range p.CV.Templates {
		file := def.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(profileDir, file)
		}
		img, err := imaging.Open(file)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		tmpl, err := vision.NewTemplate(name, img, def.Threshold, def.MaskColor, scaler)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		engine.AddTemplate(tmpl)
	}
	return engine, nil
}
