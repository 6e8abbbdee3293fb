package strategy

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brandText = "Always sound like Zephyr Coffee: warm, witty, no exclamation marks."

func fullConfig() Config {
	return Config{
		Topic:           "cold brew at home",
		Draft:           "Cold brew is easy. Here's how.",
		Competitor:      "@rivalroasters",
		Niche:           "specialty coffee",
		Goal:            "grow followers",
		Tones:           []string{"playful", " Playful ", "expert"},
		Keywords:        "cold brew, recipe",
		Geography:       "Germany",
		Audience:        "students",
		BrandGuidelines: brandText,
	}
}

func TestBuildPrompt_TotalAndNonEmpty(t *testing.T) {
	modes := []Mode{ModeGenerate, ModeRefine, ModeSpy, ModeTrend, "", "nonsense"}
	platforms := []Platform{PlatformTikTok, PlatformInstagram, PlatformYouTube, PlatformLinkedIn, PlatformTwitter, PlatformFacebook, "", "myspace"}
	formats := []string{"", FormatReel, FormatPost, FormatShorts, FormatLong, "weird"}

	for _, m := range modes {
		for _, p := range platforms {
			for _, f := range formats {
				for _, cfg := range []Config{{}, fullConfig()} {
					sel := Selection{Mode: m, Platform: p, Format: f, Config: cfg}
					got := BuildPrompt(sel)
					require.NotEmpty(t, got, "mode=%q platform=%q format=%q", m, p, f)
					assert.Equal(t, got, BuildPrompt(sel), "must be deterministic")
				}
			}
		}
	}
}

func TestBuildPrompt_BrandGuidelines(t *testing.T) {
	for _, m := range []Mode{ModeGenerate, ModeRefine, ModeSpy} {
		got := BuildPrompt(Selection{Mode: m, Platform: PlatformTikTok, Config: fullConfig()})
		assert.True(t, strings.HasPrefix(got, "BRAND VOICE"), "mode %s", m)
		assert.Contains(t, got, brandText)
	}

	for _, p := range []Platform{PlatformTikTok, PlatformInstagram, PlatformLinkedIn, PlatformFacebook} {
		got := BuildPrompt(Selection{Mode: ModeTrend, Platform: p, Config: fullConfig()})
		assert.NotContains(t, got, brandText)
		assert.NotContains(t, got, "BRAND VOICE")
	}
}

func TestBuildPrompt_PlatformAndFormatBranches(t *testing.T) {
	reel := BuildPrompt(Selection{Mode: ModeGenerate, Platform: PlatformInstagram, Format: FormatReel})
	post := BuildPrompt(Selection{Mode: ModeGenerate, Platform: PlatformInstagram, Format: FormatPost})
	assert.Contains(t, reel, "Format: Reel")
	assert.Contains(t, post, "Format: feed post or carousel")
	assert.NotEqual(t, reel, post)

	shorts := BuildPrompt(Selection{Mode: ModeRefine, Platform: PlatformYouTube, Format: "SHORTS"})
	long := BuildPrompt(Selection{Mode: ModeRefine, Platform: PlatformYouTube, Format: FormatLong})
	assert.Contains(t, shorts, "Format: YouTube Shorts")
	assert.Contains(t, long, "Format: long-form video")

	// Unknown sub-format falls back to the platform's first format.
	assert.Equal(t, shorts, BuildPrompt(Selection{Mode: ModeRefine, Platform: PlatformYouTube, Format: "vertical"}))

	twitter := BuildPrompt(Selection{Mode: ModeGenerate, Platform: PlatformTwitter})
	facebook := BuildPrompt(Selection{Mode: ModeGenerate, Platform: PlatformFacebook})
	assert.Contains(t, twitter, "PLATFORM PLAYBOOK (Generic social feed)")
	assert.Contains(t, facebook, "PLATFORM PLAYBOOK (Generic social feed)")
	assert.Contains(t, BuildPrompt(Selection{Mode: ModeGenerate, Platform: PlatformTikTok}), "PLATFORM PLAYBOOK (TikTok)")
}

func TestBuildPrompt_ModeContent(t *testing.T) {
	cfg := fullConfig()

	gen := BuildPrompt(Selection{Mode: ModeGenerate, Platform: PlatformTikTok, Config: cfg})
	assert.Contains(t, gen, "cold brew at home")
	assert.Contains(t, gen, "Tone: playful, expert")
	assert.Contains(t, gen, "Geography: Germany")

	refine := BuildPrompt(Selection{Mode: ModeRefine, Platform: PlatformLinkedIn, Config: cfg})
	assert.Contains(t, refine, cfg.Draft)

	spy := BuildPrompt(Selection{Mode: ModeSpy, Platform: PlatformYouTube, Config: cfg})
	assert.Contains(t, spy, "@rivalroasters")
	assert.Contains(t, spy, `"spyReport"`)

	trend := BuildPrompt(Selection{Mode: ModeTrend, Platform: PlatformTikTok, Config: cfg})
	assert.Contains(t, trend, "specialty coffee")
	assert.Contains(t, trend, `"trends"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		sel      Selection
		hasMedia bool
		field    string
	}{
		{"generate needs topic", Selection{Mode: ModeGenerate}, false, "topic or media"},
		{"generate with media", Selection{Mode: ModeGenerate}, true, ""},
		{"refine needs draft", Selection{Mode: ModeRefine, Config: Config{Topic: "x"}}, false, "draft or media"},
		{"refine with draft", Selection{Mode: ModeRefine, Config: Config{Draft: "x"}}, false, ""},
		{"spy needs target", Selection{Mode: ModeSpy}, true, "competitor or niche"},
		{"spy with competitor", Selection{Mode: ModeSpy, Config: Config{Competitor: "@a"}}, false, ""},
		{"trend needs niche", Selection{Mode: ModeTrend, Config: Config{Niche: "  "}}, false, "niche"},
		{"trend with niche", Selection{Mode: ModeTrend, Config: Config{Niche: "fitness"}}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sel, tt.hasMedia)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestContractFor(t *testing.T) {
	models := Models{Default: "fast", Deep: "deep", DeepThinkingBudget: 1024}

	gen := ContractFor(ModeGenerate, models)
	assert.Equal(t, "fast", gen.Model)
	require.NotNil(t, gen.Schema)
	assert.False(t, gen.Search)
	assert.Zero(t, gen.ThinkingBudget)
	assert.Equal(t, "INTEGER", gen.Schema.Properties["virality"].Properties["score"].Type)
	assert.Equal(t, 100.0, *gen.Schema.Properties["virality"].Properties["score"].Maximum)
	assert.Equal(t, "ARRAY", gen.Schema.Properties["strategy"].Properties["hashtags"].Type)

	refine := ContractFor(ModeRefine, models)
	assert.Equal(t, "deep", refine.Model)
	assert.Equal(t, 1024, refine.ThinkingBudget)
	require.NotNil(t, refine.Schema)
	rd := refine.Schema.Properties["refineData"]
	assert.Equal(t, "OBJECT", rd.Properties["audit"].Type)
	assert.Equal(t, "OBJECT", rd.Properties["refinedContent"].Type)

	for _, m := range []Mode{ModeSpy, ModeTrend} {
		c := ContractFor(m, models)
		assert.True(t, c.Search)
		assert.Nil(t, c.Schema)
		assert.Equal(t, "fast", c.Model)
	}

	for _, m := range []Mode{ModeGenerate, ModeRefine, ModeSpy, ModeTrend} {
		c := ContractFor(m, Models{})
		assert.False(t, c.Schema != nil && c.Search, "mode %s must not combine schema and search", m)
		assert.Equal(t, Structured(m), c.Schema != nil)
	}
}
