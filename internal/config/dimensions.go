// Package config holds the per-dimension height overrides and the runtime
// settings of the mod.
package config

import (
	"sort"
)

// Bounds is the lowest and highest buildable Y of a dimension.
type Bounds struct {
	Min int16 `yaml:"min" json:"min"`
	Max int16 `yaml:"max" json:"max"`
}

// Dimensions maps a dimension name as the game reports it to its bounds.
type Dimensions map[string]Bounds

// Defaults are the vanilla limits, written out whenever no usable override
// file exists.
func Defaults() Dimensions {
	return Dimensions{
		"Overworld": {Min: -64, Max: 320},
		"Nether":    {Min: 0, Max: 128},
		"TheEnd":    {Min: 0, Max: 256},
	}
}

// Names returns the dimension names in sorted order.
func (d Dimensions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Dimensions) clone() Dimensions {
	out := make(Dimensions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
