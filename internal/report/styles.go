package report

import "github.com/charmbracelet/lipgloss"

var (
	criticalColor = lipgloss.Color("#CC3333")
	warningColor  = lipgloss.Color("#FF8800")
	goodColor     = lipgloss.Color("#228B22")
	infoColor     = lipgloss.Color("#4682B4")
	textColor     = lipgloss.Color("#CCCCCC")
	mutedColor    = lipgloss.Color("#888888")
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	critical lipgloss.Style
	warning  lipgloss.Style
	good     lipgloss.Style
	info     lipgloss.Style
	muted    lipgloss.Style
}

// newStyles binds the palette to r so color output follows the destination
// writer rather than stdout.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Foreground(infoColor).Bold(true),
		header:   r.NewStyle().Foreground(textColor).Bold(true).Underline(true),
		critical: r.NewStyle().Foreground(criticalColor).Bold(true),
		warning:  r.NewStyle().Foreground(warningColor).Bold(true),
		good:     r.NewStyle().Foreground(goodColor).Bold(true),
		info:     r.NewStyle().Foreground(infoColor),
		muted:    r.NewStyle().Foreground(mutedColor),
	}
}
