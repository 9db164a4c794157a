package types

import "strings"

// Style is a creative transformation applied when rewriting the storyboard.
type Style string

const (
	StyleOriginal    Style = "original"
	StyleComedic     Style = "comedic"
	StyleEerie       Style = "eerie"
	StyleAggressive  Style = "aggressive"
	StyleThriller    Style = "thriller"
	StyleCinematic   Style = "cinematic"
	StyleAnimation3D Style = "3d-animated"
)

var styleLabels = map[Style]string{
	StyleOriginal:    "Original",
	StyleComedic:     "Comedic",
	StyleEerie:       "Eerie",
	StyleAggressive:  "Aggressive",
	StyleThriller:    "Thriller",
	StyleCinematic:   "Cinematic",
	StyleAnimation3D: "3D Animation",
}

// Styles returns the enumeration in display order.
func Styles() []Style {
	return []Style{
		StyleOriginal,
		StyleComedic,
		StyleEerie,
		StyleAggressive,
		StyleThriller,
		StyleCinematic,
		StyleAnimation3D,
	}
}

func ParseStyle(s string) (Style, bool) {
	style := Style(strings.ToLower(strings.TrimSpace(s)))
	_, ok := styleLabels[style]
	return style, ok
}

func (s Style) Valid() bool {
	_, ok := styleLabels[s]
	return ok
}

// Label is the human-readable name sent to the scripting model.
func (s Style) Label() string {
	if label, ok := styleLabels[s]; ok {
		return label
	}
	return string(s)
}
