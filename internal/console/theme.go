package console

import "github.com/charmbracelet/lipgloss"

// Emotion colors.
var (
	ColorAnger    = lipgloss.Color("#dc2626")
	ColorFear     = lipgloss.Color("#a855f7")
	ColorSadness  = lipgloss.Color("#3b82f6")
	ColorJoy      = lipgloss.Color("#22c55e")
	ColorSurprise = lipgloss.Color("#f59e0b")
	ColorDisgust  = lipgloss.Color("#10b981")
	ColorNeutral  = lipgloss.Color("#9ca3af")
	ColorUnknown  = lipgloss.Color("#4b5563")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorDanger  = lipgloss.Color("#dc2626")
)

var (
	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDimmed)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorBright).Bold(true)
	StyleAlert  = lipgloss.NewStyle().Foreground(ColorBright).Background(ColorDanger).Bold(true).Padding(0, 1)
	StyleAgent  = lipgloss.NewStyle().Foreground(ColorBright)
)

// EmotionColor returns the color used for an emotion label.
func EmotionColor(emotion string) lipgloss.Color {
	switch emotion {
	case "anger":
		return ColorAnger
	case "fear":
		return ColorFear
	case "sadness":
		return ColorSadness
	case "joy":
		return ColorJoy
	case "surprise":
		return ColorSurprise
	case "disgust":
		return ColorDisgust
	case "unknown":
		return ColorUnknown
	default:
		return ColorNeutral
	}
}
