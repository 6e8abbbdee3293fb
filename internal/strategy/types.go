package strategy

import "strings"

type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeRefine   Mode = "refine"
	ModeSpy      Mode = "spy"
	ModeTrend    Mode = "trend"
)

type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
)

// Sub-formats exist for Instagram and YouTube only.
const (
	FormatReel   = "reel"
	FormatPost   = "post"
	FormatShorts = "shorts"
	FormatLong   = "long"
)

var modeAliases = map[string]Mode{
	"generate":   ModeGenerate,
	"generation": ModeGenerate,
	"create":     ModeGenerate,
	"refine":     ModeRefine,
	"audit":      ModeRefine,
	"spy":        ModeSpy,
	"competitor": ModeSpy,
	"trend":      ModeTrend,
	"trends":     ModeTrend,
}

var platformAliases = map[string]Platform{
	"tiktok":    PlatformTikTok,
	"instagram": PlatformInstagram,
	"ig":        PlatformInstagram,
	"youtube":   PlatformYouTube,
	"yt":        PlatformYouTube,
	"linkedin":  PlatformLinkedIn,
	"twitter":   PlatformTwitter,
	"x":         PlatformTwitter,
	"facebook":  PlatformFacebook,
	"fb":        PlatformFacebook,
}

var platformFormats = map[Platform][]string{
	PlatformInstagram: {FormatReel, FormatPost},
	PlatformYouTube:   {FormatShorts, FormatLong},
}

// ParseMode resolves a user-supplied mode name.
func ParseMode(value string) (Mode, bool) {
	m, ok := modeAliases[strings.ToLower(strings.TrimSpace(value))]
	return m, ok
}

func ParsePlatform(value string) (Platform, bool) {
	p, ok := platformAliases[strings.ToLower(strings.TrimSpace(value))]
	return p, ok
}

// NormalizeFormat returns the platform's sub-format for value, falling back to the first one.
// Platforms without sub-formats always yield "".
func NormalizeFormat(p Platform, value string) string {
	formats := platformFormats[p]
	if len(formats) == 0 {
		return ""
	}
	value = strings.ToLower(strings.TrimSpace(value))
	for _, f := range formats {
		if f == value {
			return f
		}
	}
	return formats[0]
}

// Config holds the user-chosen parameters that feed prompt construction.
type Config struct {
	Topic           string   `json:"topic,omitempty" yaml:"topic"`
	Draft           string   `json:"draft,omitempty" yaml:"draft"`
	Competitor      string   `json:"competitor,omitempty" yaml:"competitor"`
	Niche           string   `json:"niche,omitempty" yaml:"niche"`
	Goal            string   `json:"goal,omitempty" yaml:"goal"`
	Tones           []string `json:"tones,omitempty" yaml:"tones"`
	Keywords        string   `json:"keywords,omitempty" yaml:"keywords"`
	Geography       string   `json:"geography,omitempty" yaml:"geography"`
	Audience        string   `json:"audience,omitempty" yaml:"audience"`
	BrandGuidelines string   `json:"brandGuidelines,omitempty" yaml:"brand_guidelines"`
}

// Selection is everything the prompt selector needs for one analysis.
type Selection struct {
	Mode     Mode     `json:"mode"`
	Platform Platform `json:"platform"`
	Format   string   `json:"format,omitempty"`
	Config   Config   `json:"config"`
}

// Normalized fills defaults: unknown modes become generate, unknown platforms tiktok.
func (s Selection) Normalized() Selection {
	if m, ok := ParseMode(string(s.Mode)); ok {
		s.Mode = m
	} else {
		s.Mode = ModeGenerate
	}
	if p, ok := ParsePlatform(string(s.Platform)); ok {
		s.Platform = p
	} else {
		s.Platform = PlatformTikTok
	}
	s.Format = NormalizeFormat(s.Platform, s.Format)
	return s
}
