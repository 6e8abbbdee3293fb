package strategy

type NamedOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

var modeNames = map[Mode]string{
	ModeGenerate: "Viral content generation",
	ModeRefine:   "Draft refinement",
	ModeSpy:      "Competitor analysis",
	ModeTrend:    "Trend discovery",
}

var platformNames = map[Platform]string{
	PlatformTikTok:    "TikTok",
	PlatformInstagram: "Instagram",
	PlatformYouTube:   "YouTube",
	PlatformLinkedIn:  "LinkedIn",
	PlatformTwitter:   "X (Twitter)",
	PlatformFacebook:  "Facebook",
}

var formatNames = map[string]string{
	FormatReel:   "Reel",
	FormatPost:   "Feed post / carousel",
	FormatShorts: "Shorts",
	FormatLong:   "Long-form video",
}

func Modes() []NamedOption {
	order := []Mode{ModeGenerate, ModeRefine, ModeSpy, ModeTrend}

	out := make([]NamedOption, 0, len(order))
	for _, m := range order {
		out = append(out, NamedOption{Key: string(m), Name: modeNames[m]})
	}
	return out
}

func Platforms() []NamedOption {
	order := []Platform{
		PlatformTikTok,
		PlatformInstagram,
		PlatformYouTube,
		PlatformLinkedIn,
		PlatformTwitter,
		PlatformFacebook,
	}

	out := make([]NamedOption, 0, len(order))
	for _, p := range order {
		out = append(out, NamedOption{Key: string(p), Name: platformNames[p]})
	}
	return out
}

// Formats lists the sub-formats of a platform; nil when it has none.
func Formats(p Platform) []NamedOption {
	keys := platformFormats[p]
	if len(keys) == 0 {
		return nil
	}
	out := make([]NamedOption, 0, len(keys))
	for _, k := range keys {
		out = append(out, NamedOption{Key: k, Name: formatNames[k]})
	}
	return out
}

func ModeName(m Mode) string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return string(m)
}

func PlatformName(p Platform) string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return string(p)
}
