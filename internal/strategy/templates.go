package strategy

type platformGuide struct {
	Name  string
	Lines []string
}

// Guides are keyed by platform; "" is the generic fallback.
var generateGuides = map[Platform]platformGuide{
	"": {
		Name: "Generic social feed",
		Lines: []string{
			"Lead with a scroll-stopping first line; the feed decides in under two seconds.",
			"Keep paragraphs short and skimmable; one idea per line.",
			"End with a question or clear call to action that invites comments.",
			"Use 3-5 relevant hashtags, mixing broad and niche tags.",
		},
	},
	PlatformTikTok: {
		Name: "TikTok",
		Lines: []string{
			"Hook inside the first 1-2 seconds with motion, on-screen text and a pattern interrupt.",
			"Script for 15-45 seconds with a fast cut every 2-3 seconds.",
			"Optimize for completion rate and rewatches: open loops, payoff at the end.",
			"Suggest a trending sound category and on-screen caption text.",
			"Caption under 150 characters; 3-5 hashtags including one niche tag.",
		},
	},
	PlatformInstagram: {
		Name: "Instagram",
		Lines: []string{
			"Design for saves and shares: practical, beautiful or identity-affirming content.",
			"First caption line must work as a standalone headline before 'more'.",
			"Use 5-10 hashtags split between community, niche and topic tags.",
		},
	},
	PlatformYouTube: {
		Name: "YouTube",
		Lines: []string{
			"Title and thumbnail concept come first; they decide click-through rate.",
			"Front-load keywords in the title and first two lines of the description.",
			"Structure for audience retention: promise, proof, payoff.",
		},
	},
	PlatformLinkedIn: {
		Name: "LinkedIn",
		Lines: []string{
			"Professional but human voice; first two lines must earn the 'see more' click.",
			"Share a concrete lesson, number or story from real work.",
			"Use line breaks generously; avoid external links in the post body.",
			"3 hashtags maximum, industry specific.",
		},
	},
}

var formatGuides = map[string][]string{
	string(PlatformInstagram) + ":" + FormatReel: {
		"Format: Reel (9:16, 7-30 seconds). Visual hook in frame one, text overlay for silent viewing.",
		"Loopable ending so the reel replays seamlessly.",
	},
	string(PlatformInstagram) + ":" + FormatPost: {
		"Format: feed post or carousel (4:5). Slide one is the hook, last slide is the call to action.",
		"Each carousel slide carries one idea in large readable type.",
	},
	string(PlatformYouTube) + ":" + FormatShorts: {
		"Format: YouTube Shorts (9:16, under 60 seconds). No intro; start mid-action.",
		"Title is a curiosity gap under 50 characters.",
	},
	string(PlatformYouTube) + ":" + FormatLong: {
		"Format: long-form video (8-15 minutes). Include a chapter outline and a 30-second cold open.",
		"Plan a mid-roll re-hook around the 3 minute mark.",
	},
}

var refineGuides = map[Platform]platformGuide{
	"": {
		Name: "Generic social feed",
		Lines: []string{
			"Audit the hook, clarity, emotional pull and call to action.",
			"Flag anything that reads as generic or AI-written and rewrite it in a specific voice.",
		},
	},
	PlatformTikTok: {
		Name: "TikTok",
		Lines: []string{
			"Judge the first two seconds as a viewer who is about to swipe.",
			"Check pacing, on-screen text legibility and whether the ending drives a rewatch.",
		},
	},
	PlatformInstagram: {
		Name: "Instagram",
		Lines: []string{
			"Judge save-worthiness and share-worthiness separately.",
			"Check caption first line, hashtag mix and visual consistency with a curated grid.",
		},
	},
	PlatformYouTube: {
		Name: "YouTube",
		Lines: []string{
			"Judge title/thumbnail click-through potential and retention risk points.",
			"Check search intent coverage in title, description and tags.",
		},
	},
	PlatformLinkedIn: {
		Name: "LinkedIn",
		Lines: []string{
			"Judge credibility, specificity and whether the post invites professional discussion.",
			"Remove buzzwords and engagement bait that the feed penalizes.",
		},
	},
}

var spyGuides = map[Platform]platformGuide{
	"": {
		Name: "Generic social feed",
		Lines: []string{
			"Look at the competitor's most engaged recent posts and recurring formats.",
		},
	},
	PlatformTikTok: {
		Name: "TikTok",
		Lines: []string{
			"Examine hooks, sounds, series formats and posting cadence of their top videos.",
		},
	},
	PlatformInstagram: {
		Name: "Instagram",
		Lines: []string{
			"Examine reels versus carousel mix, caption style and collaboration patterns.",
		},
	},
	PlatformYouTube: {
		Name: "YouTube",
		Lines: []string{
			"Examine title formulas, thumbnail style, video length and upload cadence.",
		},
	},
	PlatformLinkedIn: {
		Name: "LinkedIn",
		Lines: []string{
			"Examine post formats, storytelling structure and which topics earn comments.",
		},
	},
}

var trendGuides = map[Platform]platformGuide{
	"": {
		Name: "Generic social feed",
		Lines: []string{
			"Prefer conversations that are growing this week across social platforms and news.",
		},
	},
	PlatformTikTok: {
		Name: "TikTok",
		Lines: []string{
			"Prefer rising sounds, challenges, formats and creator memes from the last 7 days.",
		},
	},
	PlatformInstagram: {
		Name: "Instagram",
		Lines: []string{
			"Prefer rising reel formats, audio and aesthetic trends from the last 7 days.",
		},
	},
	PlatformYouTube: {
		Name: "YouTube",
		Lines: []string{
			"Prefer rising search topics and breakout video formats from the last 7 days.",
		},
	},
	PlatformLinkedIn: {
		Name: "LinkedIn",
		Lines: []string{
			"Prefer industry news, reports and workplace debates from the last 7 days.",
		},
	},
}

const spyOutputShape = `{
  "spyReport": [
    {
      "analysis": "what the competitor does and why it works",
      "keywords": "comma separated keywords and hashtags they rank for",
      "strategy": "the repeatable strategy behind it",
      "learning": "what to copy or counter, as a concrete action"
    }
  ]
}`

const trendOutputShape = `{
  "trends": [
    {
      "headline": "short name of the trend",
      "whyItsHot": "why it is gaining attention right now",
      "contentIdea": "one concrete content idea that rides the trend",
      "platform": "best platform for it",
      "difficulty": "Easy | Medium | Hard"
    }
  ]
}`

func lookupGuide(guides map[Platform]platformGuide, p Platform) platformGuide {
	if g, ok := guides[p]; ok {
		return g
	}
	return guides[""]
}
