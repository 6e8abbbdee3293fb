package strategy

import (
	"fmt"
	"strings"
)

// BuildPrompt maps a selection to the single instruction that precedes the payload parts.
// It is pure and always returns a non-empty string.
func BuildPrompt(sel Selection) string {
	sel = sel.Normalized()
	cfg := sel.Config

	var b strings.Builder
	b.Grow(4096)

	if brand := strings.TrimSpace(cfg.BrandGuidelines); brand != "" && sel.Mode != ModeTrend {
		b.WriteString("BRAND VOICE (apply to everything you write):\n")
		b.WriteString(brand + "\n\n")
	}

	switch sel.Mode {
	case ModeRefine:
		writeRefine(&b, sel)
	case ModeSpy:
		writeSpy(&b, sel)
	case ModeTrend:
		writeTrend(&b, sel)
	default:
		writeGenerate(&b, sel)
	}

	return strings.TrimSpace(b.String())
}

func writeGenerate(b *strings.Builder, sel Selection) {
	cfg := sel.Config
	guide := lookupGuide(generateGuides, sel.Platform)

	b.WriteString("TASK: You are a viral content strategist. Build a complete, ready-to-post content strategy ")
	b.WriteString(fmt.Sprintf("for %s from the attached media and notes.\n\n", PlatformName(sel.Platform)))

	writeSection(b, "PLATFORM PLAYBOOK ("+guide.Name+")", append(append([]string(nil), guide.Lines...), formatGuides[formatKey(sel)]...))
	writeTargeting(b, cfg)

	if topic := strings.TrimSpace(cfg.Topic); topic != "" {
		writeSection(b, "TOPIC / NOTES", []string{topic})
	}

	writeSection(b, "OUTPUT RULES", []string{
		"Score virality honestly from 0 to 100 and explain the drivers.",
		"Write the hook, caption, script outline and call to action in the audience's language.",
		"Hashtags without the # sign; SEO keywords as plain phrases.",
		"Give at least three optimization ideas that would raise the score.",
		"Return JSON only, matching the response schema.",
	})
}

func writeRefine(b *strings.Builder, sel Selection) {
	cfg := sel.Config
	guide := lookupGuide(refineGuides, sel.Platform)

	b.WriteString("TASK: You are a senior content editor. Audit the draft below (and any attached media) ")
	b.WriteString(fmt.Sprintf("for %s, score it, then rewrite it into its strongest version.\n\n", PlatformName(sel.Platform)))

	writeSection(b, "AUDIT FOCUS ("+guide.Name+")", append(append([]string(nil), guide.Lines...), formatGuides[formatKey(sel)]...))
	writeTargeting(b, cfg)

	if draft := strings.TrimSpace(cfg.Draft); draft != "" {
		b.WriteString("DRAFT:\n")
		b.WriteString("\"\"\"\n" + draft + "\n\"\"\"\n\n")
	}

	writeSection(b, "OUTPUT RULES", []string{
		"baselineScore rates the draft as submitted (0-100); finalScore rates your rewrite.",
		"List concrete strengths and weaknesses; quote the weak phrases.",
		"Keep the author's intent and facts; never invent claims.",
		"List every change you made and why it helps.",
		"Return JSON only, matching the response schema.",
	})
}

func writeSpy(b *strings.Builder, sel Selection) {
	cfg := sel.Config
	guide := lookupGuide(spyGuides, sel.Platform)

	target := strings.TrimSpace(cfg.Competitor)
	if target == "" {
		target = "the leading creators in this niche"
	}

	b.WriteString("TASK: You are a competitive intelligence analyst for social media. Use Google Search to research ")
	b.WriteString(fmt.Sprintf("%s on %s and reverse-engineer what drives their reach.\n\n", target, PlatformName(sel.Platform)))

	writeSection(b, "RESEARCH FOCUS ("+guide.Name+")", guide.Lines)
	writeTargeting(b, cfg)

	if niche := strings.TrimSpace(cfg.Niche); niche != "" {
		writeSection(b, "NICHE", []string{niche})
	}

	b.WriteString("OUTPUT RULES:\n")
	b.WriteString("- Produce 3 to 6 rows, each grounded in what you found.\n")
	b.WriteString("- Reply with a single JSON object of exactly this shape and nothing else:\n")
	b.WriteString(spyOutputShape + "\n")
}

func writeTrend(b *strings.Builder, sel Selection) {
	cfg := sel.Config
	guide := lookupGuide(trendGuides, sel.Platform)

	niche := strings.TrimSpace(cfg.Niche)
	if niche == "" {
		niche = strings.TrimSpace(cfg.Topic)
	}
	if niche == "" {
		niche = "general consumer interest"
	}

	b.WriteString("TASK: You are a trend forecaster. Use Google Search to find what is gaining momentum right now ")
	b.WriteString(fmt.Sprintf("in %q for creators on %s.\n\n", niche, PlatformName(sel.Platform)))

	writeSection(b, "SIGNALS ("+guide.Name+")", guide.Lines)

	var targeting []string
	if geo := strings.TrimSpace(cfg.Geography); geo != "" {
		targeting = append(targeting, "Geography: "+geo)
	}
	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		targeting = append(targeting, "Audience: "+audience)
	}
	writeSection(b, "TARGETING", targeting)

	b.WriteString("OUTPUT RULES:\n")
	b.WriteString("- Return exactly 5 trends, most promising first.\n")
	b.WriteString("- Reply with a single JSON object of exactly this shape and nothing else:\n")
	b.WriteString(trendOutputShape + "\n")
}

func writeTargeting(b *strings.Builder, cfg Config) {
	var lines []string
	if goal := strings.TrimSpace(cfg.Goal); goal != "" {
		lines = append(lines, "Goal: "+goal)
	}
	if tones := cleanList(cfg.Tones); len(tones) > 0 {
		lines = append(lines, "Tone: "+strings.Join(tones, ", "))
	}
	if kw := strings.TrimSpace(cfg.Keywords); kw != "" {
		lines = append(lines, "Keywords to work in: "+kw)
	}
	if geo := strings.TrimSpace(cfg.Geography); geo != "" {
		lines = append(lines, "Geography: "+geo)
	}
	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		lines = append(lines, "Audience: "+audience)
	}
	writeSection(b, "TARGETING", lines)
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")
}

func formatKey(sel Selection) string {
	if sel.Format == "" {
		return ""
	}
	return string(sel.Platform) + ":" + sel.Format
}

func cleanList(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
