package cli

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stipple/pkg/encode"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/pipeline"
	"github.com/matzehuels/stipple/pkg/stipple"
	"github.com/matzehuels/stipple/pkg/units"
)

//go:embed presets.toml
var builtinPresets string

const (
	sourceBuiltin = "built-in"
	sourceUser    = "user"
)

// Preset is a named set of option values. Zero fields are left to the
// command defaults.
type Preset struct {
	Description string `toml:"description"`

	Policy          string  `toml:"policy"`
	MinDiameter     float64 `toml:"min_diameter"`
	MaxDiameter     float64 `toml:"max_diameter"`
	DensityFactor   float64 `toml:"density_factor"`
	Threshold       float64 `toml:"threshold"`
	Invert          bool    `toml:"invert"`
	SamplesPerPixel int     `toml:"samples_per_pixel"`
	DPI             float64 `toml:"dpi"`
	TargetWidth     float64 `toml:"target_width"`
	Unit            string  `toml:"unit"`
	Seed            uint64  `toml:"seed"`

	Width     int      `toml:"width"`
	Scale     float64  `toml:"scale"`
	Grayscale bool     `toml:"grayscale"`
	Formats   []string `toml:"formats"`

	// Source is "built-in" or "user".
	Source string `toml:"-"`
}

type presetFile struct {
	Presets map[string]Preset `toml:"presets"`
}

// validate checks the enumerated fields so a bad preset fails when it is
// loaded rather than halfway through a run.
func (p Preset) validate(name string) error {
	if p.Policy != "" {
		if _, err := stipple.ParsePolicy(p.Policy); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidParameter, err, "preset %s", name)
		}
	}
	if p.Unit != "" {
		if _, err := units.ParseUnit(p.Unit); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidParameter, err, "preset %s", name)
		}
	}
	if _, err := encode.ParseFormats(p.Formats); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "preset %s", name)
	}
	return nil
}

// apply copies the preset's non-zero values into opts.
func (p Preset) apply(opts *pipeline.Options) {
	params := &opts.Params
	if p.Policy != "" {
		params.Policy, _ = stipple.ParsePolicy(p.Policy)
	}
	if p.MinDiameter != 0 {
		params.MinDiameter = p.MinDiameter
	}
	if p.MaxDiameter != 0 {
		params.MaxDiameter = p.MaxDiameter
	}
	if p.DensityFactor != 0 {
		params.DensityFactor = p.DensityFactor
	}
	if p.Threshold != 0 {
		params.Threshold = p.Threshold
	}
	if p.Invert {
		params.Invert = true
	}
	if p.SamplesPerPixel != 0 {
		params.SamplesPerPixel = p.SamplesPerPixel
	}
	if p.DPI != 0 {
		params.DPI = p.DPI
	}
	if p.TargetWidth != 0 {
		params.TargetWidth = p.TargetWidth
	}
	if p.Unit != "" {
		params.Unit, _ = units.ParseUnit(p.Unit)
	}
	if p.Seed != 0 {
		params.Seed = p.Seed
	}
	if p.Width != 0 {
		opts.Width = p.Width
	}
	if p.Scale != 0 {
		opts.Scale = p.Scale
	}
	if p.Grayscale {
		opts.Grayscale = true
	}
	if len(p.Formats) > 0 {
		opts.Formats = append([]string(nil), p.Formats...)
	}
}

// decodePresets parses one preset document. Unknown keys are rejected so
// that typos do not silently fall back to defaults.
func decodePresets(data, source string) (map[string]Preset, error) {
	var f presetFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s presets", source)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown keys in %s presets: %s", source, strings.Join(keys, ", "))
	}
	for name, p := range f.Presets {
		if err := p.validate(name); err != nil {
			return nil, err
		}
		p.Source = source
		f.Presets[name] = p
	}
	return f.Presets, nil
}

// loadPresets returns the built-in presets merged with the user file at
// path. A missing file is only an error when required is set.
func loadPresets(path string, required bool) (map[string]Preset, error) {
	presets, err := decodePresets(builtinPresets, sourceBuiltin)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return presets, nil
	}
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}

	user, err := decodePresets(string(data), sourceUser)
	if err != nil {
		return nil, err
	}
	for name, p := range user {
		presets[name] = p
	}
	return presets, nil
}

// presetNames returns the preset names in sorted order.
func presetNames(presets map[string]Preset) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadPreset resolves a single preset by name.
func (c *CLI) loadPreset(name string) (Preset, error) {
	presets, err := loadPresets(c.presetPath(), c.configPath != "")
	if err != nil {
		return Preset{}, err
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, errors.New(errors.ErrCodeInvalidParameter,
			"unknown preset %q (available: %s)", name, strings.Join(presetNames(presets), ", "))
	}
	return p, nil
}

// presetsCommand creates the "presets" command.
func (c *CLI) presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List parameter presets",
		Long: `List the built-in parameter presets and those defined in the user preset file.

Presets live under [presets.<name>] tables in TOML. Any key left out falls
back to the command default, and flags given on the command line override
the preset:

  [presets.poster]
  description = "large threshold-gated print"
  policy = "threshold"
  density_factor = 2.0
  target_width = 600
  unit = "mm"
  formats = ["plt", "svg"]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := loadPresets(c.presetPath(), c.configPath != "")
			if err != nil {
				return err
			}
			for _, name := range presetNames(presets) {
				printPreset(name, presets[name])
			}
			if path := c.presetPath(); path != "" {
				printNewline()
				printDetail("User presets: %s", path)
			}
			return nil
		},
	}
}

// describePreset summarizes a preset's settings on one line.
func describePreset(p Preset) string {
	var parts []string
	if p.Policy != "" {
		parts = append(parts, p.Policy)
	}
	if p.DensityFactor != 0 {
		parts = append(parts, fmt.Sprintf("density %g", p.DensityFactor))
	}
	if p.Threshold != 0 {
		parts = append(parts, fmt.Sprintf("threshold %g", p.Threshold))
	}
	if p.TargetWidth != 0 {
		parts = append(parts, fmt.Sprintf("%gmm wide", p.TargetWidth))
	}
	if len(p.Formats) > 0 {
		parts = append(parts, strings.Join(p.Formats, ","))
	}
	return strings.Join(parts, " · ")
}
