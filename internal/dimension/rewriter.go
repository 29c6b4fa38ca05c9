// Package dimension holds the replacement for the game's dimension height
// range setup. The game passes each dimension's range as one packed value;
// the replacement swaps in the configured bounds before the original runs.
package dimension

import (
	"github.com/rs/zerolog"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/config"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/rangeval"
)

// Overrides supplies the configured bounds for a dimension. *config.Store
// implements it.
type Overrides interface {
	Lookup(name string) (config.Bounds, bool)
}

// Rewriter computes the range handed to the original function.
type Rewriter struct {
	overrides Overrides
	logger    zerolog.Logger
}

func NewRewriter(overrides Overrides, logger zerolog.Logger) *Rewriter {
	return &Rewriter{overrides: overrides, logger: logger}
}

// Rewrite returns packed with its bounds replaced by the override for name,
// if any, and aligned to whole sub-chunks. A dimension without a readable
// name never matches an override.
func (r *Rewriter) Rewrite(name string, packed int32) int32 {
	fileMax, fileMin := rangeval.Split(packed)

	cfgMin, cfgMax := fileMin, fileMax
	if r.overrides != nil && name != Unnamed {
		if b, ok := r.overrides.Lookup(name); ok {
			cfgMin, cfgMax = b.Min, b.Max
		}
	}

	newMin := rangeval.Align(cfgMin, false)
	newMax := rangeval.Align(cfgMax, true)
	r.report(name, "Min", fileMin, cfgMin, newMin)
	r.report(name, "Max", fileMax, cfgMax, newMax)

	return rangeval.Combine(newMax, newMin)
}

func (r *Rewriter) report(name, label string, old, cfg, aligned int16) {
	if !rangeval.IsAligned(cfg) {
		r.logger.Warn().Msgf("%s Dimension Config %s %d not divisible by 16, aligning to %d", name, label, cfg, aligned)
	}
	if old != aligned {
		r.logger.Info().Msgf("Changing %s Dimension %s: %d → %d", name, label, old, aligned)
	}
}
