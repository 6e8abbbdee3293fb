package strategy

import (
	"encoding/json"
	"strings"
)

// PrimaryField names the config field a free-text input fills for the mode.
func PrimaryField(mode Mode) string {
	switch mode {
	case ModeRefine:
		return "draft"
	case ModeSpy:
		return "competitor"
	case ModeTrend:
		return "niche"
	default:
		return "topic"
	}
}

// WithPrimary stores text in the mode's primary field. Blank text leaves the selection as is.
func (s Selection) WithPrimary(text string) Selection {
	text = strings.TrimSpace(text)
	if text == "" {
		return s
	}
	switch s.Normalized().Mode {
	case ModeRefine:
		s.Config.Draft = text
	case ModeSpy:
		s.Config.Competitor = text
	case ModeTrend:
		s.Config.Niche = text
	default:
		s.Config.Topic = text
	}
	return s
}

// ParseTones accepts a JSON string array or a comma separated list.
func ParseTones(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var list []string
		if err := json.Unmarshal([]byte(value), &list); err == nil {
			return cleanList(list)
		}
	}
	return cleanList(strings.Split(value, ","))
}
