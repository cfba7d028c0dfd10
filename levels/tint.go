package levels

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// Tint is a presentation color. In YAML it may be written as "#rrggbb",
// "#rrggbbaa", an SVG color name, or a sequence of 3-4 floats in [0, 1].
type Tint struct {
	color.NRGBA
}

func (t Tint) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", t.R, t.G, t.B, t.A)
}

// Floats returns the channels as straight (non-premultiplied) values in [0, 1].
func (t Tint) Floats() [4]float64 {
	return [4]float64{
		float64(t.R) / 255,
		float64(t.G) / 255,
		float64(t.B) / 255,
		float64(t.A) / 255,
	}
}

func (t Tint) MarshalYAML() (interface{}, error) {
	return t.Hex(), nil
}

func (t *Tint) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		c, err := ParseTint(value.Value)
		if err != nil {
			return err
		}
		*t = c
		return nil
	case yaml.SequenceNode:
		var chans []float64
		if err := value.Decode(&chans); err != nil {
			return fmt.Errorf("tint: %w", err)
		}
		c, err := tintFromFloats(chans)
		if err != nil {
			return err
		}
		*t = c
		return nil
	}
	return fmt.Errorf("tint must be a string or a float sequence (line %d)", value.Line)
}

// ParseTint parses a hex color or an SVG color name.
func ParseTint(s string) (Tint, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		if c, ok := colornames.Map[strings.ToLower(s)]; ok {
			return Tint{color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}}, nil
		}
		return Tint{}, fmt.Errorf("invalid tint: %q", s)
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Tint{}, fmt.Errorf("invalid tint format: %s", s)
	}

	parse := func(start int) (uint8, error) {
		v, err := strconv.ParseUint(hex[start:start+2], 16, 8)
		return uint8(v), err
	}

	r, err := parse(0)
	if err != nil {
		return Tint{}, err
	}
	g, err := parse(2)
	if err != nil {
		return Tint{}, err
	}
	b, err := parse(4)
	if err != nil {
		return Tint{}, err
	}

	a := uint8(255)
	if len(hex) == 8 {
		a, err = parse(6)
		if err != nil {
			return Tint{}, err
		}
	}

	return Tint{color.NRGBA{R: r, G: g, B: b, A: a}}, nil
}

func tintFromFloats(chans []float64) (Tint, error) {
	if len(chans) != 3 && len(chans) != 4 {
		return Tint{}, fmt.Errorf("tint needs 3 or 4 channels, got %d", len(chans))
	}
	out := [4]uint8{0, 0, 0, 255}
	for i, v := range chans {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return Tint{}, fmt.Errorf("tint channel %d out of range: %g", i, v)
		}
		out[i] = uint8(math.Round(v * 255))
	}
	return Tint{color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}}, nil
}
