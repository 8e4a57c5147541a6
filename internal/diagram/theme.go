package diagram

import (
	"embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ThemeSpec is one theme's rendering attributes (spec.md §4.10).
type ThemeSpec struct {
	ID         Theme
	Foreground string // hex RGB, e.g. "#1a1a1a"
	Background string
	Accent     string
	FontSizePt int
}

//go:embed themes/themes.yaml
var themesFS embed.FS

// yamlTheme is one entry of themes/themes.yaml.
type yamlTheme struct {
	Foreground string `yaml:"foreground"`
	Background string `yaml:"background"`
	Accent     string `yaml:"accent"`
	FontSizePt int    `yaml:"font_size_pt"`
}

var (
	embeddedThemesOnce sync.Once
	embeddedThemes     map[Theme]ThemeSpec
	embeddedThemesErr  error
)

// loadEmbeddedThemes parses themes/themes.yaml once, lazily. "auto" is not
// a yaml entry: it resolves to "light" at render time — neither the
// walker nor the diagram generator makes a network or terminal-capability
// call to detect a real preference.
func loadEmbeddedThemes() (map[Theme]ThemeSpec, error) {
	embeddedThemesOnce.Do(func() {
		data, err := themesFS.ReadFile("themes/themes.yaml")
		if err != nil {
			embeddedThemesErr = fmt.Errorf("read embedded themes: %w", err)

			return
		}

		var raw map[string]yamlTheme
		if err := yaml.Unmarshal(data, &raw); err != nil {
			embeddedThemesErr = fmt.Errorf("parse embedded themes: %w", err)

			return
		}

		parsed := make(map[Theme]ThemeSpec, len(raw))
		for id, t := range raw {
			parsed[Theme(id)] = ThemeSpec{
				ID:         Theme(id),
				Foreground: t.Foreground,
				Background: t.Background,
				Accent:     t.Accent,
				FontSizePt: t.FontSizePt,
			}
		}

		embeddedThemes = parsed
	})

	return embeddedThemes, embeddedThemesErr
}

// ResolveTheme returns the ThemeSpec for t, resolving "auto" to "light".
func ResolveTheme(t Theme) (ThemeSpec, error) {
	if err := ValidateTheme(t); err != nil {
		return ThemeSpec{}, err
	}

	themes, err := loadEmbeddedThemes()
	if err != nil {
		return ThemeSpec{}, err
	}

	if t == ThemeAuto {
		return themes[ThemeLight], nil
	}

	return themes[t], nil
}

// minContrastRatio is WCAG AA's minimum contrast ratio for normal text.
const minContrastRatio = 4.5

// minFontSizePt is the minimum legible font size scanledger accepts.
const minFontSizePt = 10

// ThemeViolationError reports a theme that fails contrast or font-size
// validation; per spec.md §4.10 this aborts the run rather than degrading
// silently.
type ThemeViolationError struct {
	Theme  Theme
	Reason string
}

func (e *ThemeViolationError) Error() string {
	return fmt.Sprintf("diagram theme %q invalid: %s", e.Theme, e.Reason)
}

// ValidateThemeSpec enforces WCAG AA contrast (foreground against
// background, ratio >= 4.5) and a minimum font size.
func ValidateThemeSpec(t ThemeSpec) error {
	if t.FontSizePt < minFontSizePt {
		return &ThemeViolationError{
			Theme:  t.ID,
			Reason: fmt.Sprintf("font_size_pt %d below minimum %d", t.FontSizePt, minFontSizePt),
		}
	}

	ratio, err := contrastRatio(t.Foreground, t.Background)
	if err != nil {
		return &ThemeViolationError{Theme: t.ID, Reason: err.Error()}
	}

	if ratio < minContrastRatio {
		return &ThemeViolationError{
			Theme:  t.ID,
			Reason: fmt.Sprintf("contrast ratio %.2f below minimum %.1f", ratio, minContrastRatio),
		}
	}

	return nil
}

// contrastRatio implements the WCAG 2.x relative-luminance contrast
// formula for two hex RGB colors.
func contrastRatio(hexA, hexB string) (float64, error) {
	a, err := relativeLuminance(hexA)
	if err != nil {
		return 0, err
	}

	b, err := relativeLuminance(hexB)
	if err != nil {
		return 0, err
	}

	lighter, darker := a, b
	if darker > lighter {
		lighter, darker = darker, lighter
	}

	return (lighter + 0.05) / (darker + 0.05), nil
}

func relativeLuminance(hex string) (float64, error) {
	r, g, b, err := parseHexRGB(hex)
	if err != nil {
		return 0, err
	}

	rl := channelLuminance(r)
	gl := channelLuminance(g)
	bl := channelLuminance(b)

	return 0.2126*rl + 0.7152*gl + 0.0722*bl, nil
}

func channelLuminance(c float64) float64 {
	if c <= 0.03928 {
		return c / 12.92
	}

	return math.Pow((c+0.055)/1.055, 2.4)
}

func parseHexRGB(hex string) (r, g, b float64, err error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}

	rv, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	gv, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	bv, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	return float64(rv) / 255, float64(gv) / 255, float64(bv) / 255, nil
}
