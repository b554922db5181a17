// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette defines a minimal semantic theme palette.
type Palette struct {
	Primary    lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    lipgloss.Color("#7aa2f7"),
		Foreground: lipgloss.Color("#c0caf5"),
		Muted:      lipgloss.Color("#565f89"),
		Success:    lipgloss.Color("#9ece6a"),
		Warning:    lipgloss.Color("#e0af68"),
		Error:      lipgloss.Color("#f7768e"),
	},
	"gruvbox": {
		Primary:    lipgloss.Color("#83a598"),
		Foreground: lipgloss.Color("#ebdbb2"),
		Muted:      lipgloss.Color("#665c54"),
		Success:    lipgloss.Color("#b8bb26"),
		Warning:    lipgloss.Color("#fabd2f"),
		Error:      lipgloss.Color("#fb4934"),
	},
	"catppuccin": {
		Primary:    lipgloss.Color("#89b4fa"), // Blue
		Foreground: lipgloss.Color("#cdd6f4"), // Text
		Muted:      lipgloss.Color("#6c7086"), // Overlay0
		Success:    lipgloss.Color("#a6e3a1"), // Green
		Warning:    lipgloss.Color("#f9e2af"), // Yellow
		Error:      lipgloss.Color("#f38ba8"), // Red
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// Text styles used by command output.
var (
	TextPrimaryBoldStyle    lipgloss.Style
	TextForegroundStyle     lipgloss.Style
	TextForegroundBoldStyle lipgloss.Style
	TextMutedStyle          lipgloss.Style
	TextSuccessStyle        lipgloss.Style
	TextWarningStyle        lipgloss.Style
	TextErrorStyle          lipgloss.Style
)

// Status icons.
const (
	IconPass = "✔"
	IconWarn = "●"
	IconFail = "✘"
)

// SetTheme rebuilds all global styles from p.
func SetTheme(p Palette) {
	TextPrimaryBoldStyle = lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
	TextForegroundStyle = lipgloss.NewStyle().Foreground(p.Foreground)
	TextForegroundBoldStyle = TextForegroundStyle.Bold(true)
	TextMutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	TextSuccessStyle = lipgloss.NewStyle().Foreground(p.Success)
	TextWarningStyle = lipgloss.NewStyle().Foreground(p.Warning)
	TextErrorStyle = lipgloss.NewStyle().Foreground(p.Error)
}

func init() {
	SetTheme(themes[DefaultTheme])
}
