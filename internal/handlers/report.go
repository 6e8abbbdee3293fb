package handlers

import (
	"fmt"
	"strings"

	"viral-strategy-ai/internal/history"
	"viral-strategy-ai/internal/strategy"
)

// RenderResult formats a result as a plain text report.
func RenderResult(res strategy.Result) string {
	var b strings.Builder

	switch r := res.(type) {
	case strategy.GenerationResult:
		fmt.Fprintf(&b, "🚀 Viral score: %d/100\n", r.Virality.Score)
		writeLine(&b, "", r.Virality.Verdict)
		writeList(&b, "Why it works", r.Virality.Drivers)
		writeList(&b, "Risks", r.Virality.Risks)

		s := r.Strategy
		writeBlock(&b, "Hook", s.Hook)
		writeBlock(&b, "Caption", s.Caption)
		writeList(&b, "Script", s.Script)
		writeBlock(&b, "Call to action", s.CallToAction)
		writeTags(&b, s.Hashtags)
		writeBlock(&b, "Best time to post", s.PostingTime)
		writeList(&b, "Visual ideas", s.VisualIdeas)

		writeBlock(&b, "SEO title", r.SEO.Title)
		writeBlock(&b, "SEO description", r.SEO.Description)
		writeInline(&b, "Keywords", r.SEO.Keywords)
		writeInline(&b, "Tags", r.SEO.Tags)
		writeList(&b, "Optimization ideas", r.OptimizationIdeas)

	case strategy.RefineResult:
		d := r.RefineData
		fmt.Fprintf(&b, "✍️ Score: %d → %d\n", d.BaselineScore, d.FinalScore)
		writeList(&b, "Strengths", d.Audit.Strengths)
		writeList(&b, "Weaknesses", d.Audit.Weaknesses)
		writeBlock(&b, "Hook review", d.Audit.HookReview)

		rc := d.RefinedContent
		writeBlock(&b, "Title", rc.Title)
		writeBlock(&b, "Hook", rc.Hook)
		writeBlock(&b, "Refined draft", rc.Body)
		writeBlock(&b, "Call to action", rc.CallToAction)
		writeTags(&b, rc.Hashtags)
		writeList(&b, "Changes", d.Changes)

	case strategy.SpyResult:
		rows := r.CompetitorInsights.SpyReport
		fmt.Fprintf(&b, "🕵️ Competitor insights (%d)\n", len(rows))
		for i, row := range rows {
			fmt.Fprintf(&b, "\n%d. %s\n", i+1, strings.TrimSpace(row.Analysis))
			writeLine(&b, "Keywords: ", row.Keywords)
			writeLine(&b, "Strategy: ", row.Strategy)
			writeLine(&b, "Takeaway: ", row.Learning)
		}
		writeSources(&b, r.GroundingMetadata)

	case strategy.TrendResult:
		fmt.Fprintf(&b, "📈 Trends (%d)\n", len(r.Trends))
		for i, t := range r.Trends {
			fmt.Fprintf(&b, "\n%d. %s\n", i+1, strings.TrimSpace(t.Headline))
			writeLine(&b, "Why it's hot: ", t.WhyItsHot)
			writeLine(&b, "Idea: ", t.ContentIdea)
			writeLine(&b, "Platform: ", t.Platform)
			writeLine(&b, "Difficulty: ", t.Difficulty)
		}
		writeSources(&b, r.GroundingMetadata)

	default:
		return "Analysis finished."
	}

	return strings.TrimSpace(b.String())
}

func RenderSettings(sel strategy.Selection) string {
	sel = sel.Normalized()
	cfg := sel.Config

	var b strings.Builder
	b.WriteString("⚙️ Current settings\n\n")
	fmt.Fprintf(&b, "Mode: %s\n", strategy.ModeName(sel.Mode))
	fmt.Fprintf(&b, "Platform: %s\n", strategy.PlatformName(sel.Platform))
	if sel.Format != "" {
		fmt.Fprintf(&b, "Format: %s\n", sel.Format)
	}

	fields := []struct {
		label string
		value string
	}{
		{"Topic", cfg.Topic},
		{"Draft", cfg.Draft},
		{"Competitor", cfg.Competitor},
		{"Niche", cfg.Niche},
		{"Goal", cfg.Goal},
		{"Tone", strings.Join(cfg.Tones, ", ")},
		{"Keywords", cfg.Keywords},
		{"Geography", cfg.Geography},
		{"Audience", cfg.Audience},
		{"Brand guidelines", cfg.BrandGuidelines},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(&b, "%s: %s\n", f.label, shorten(v, 200))
	}
	return strings.TrimSpace(b.String())
}

func RenderHistory(items []history.Item, limit int) string {
	if len(items) == 0 {
		return "History is empty."
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	var b strings.Builder
	b.WriteString("🗂 Recent analyses\n")
	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. %s · %s · %s\n   %s",
			i+1,
			strategy.ModeName(it.Mode),
			strategy.PlatformName(it.Platform),
			it.Timestamp.Local().Format("2006-01-02 15:04"),
			it.Summary,
		)
	}
	b.WriteString("\n\nOpen one with /history <number>.")
	return b.String()
}

func writeBlock(b *strings.Builder, title, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "\n%s:\n%s\n", title, value)
}

func writeLine(b *strings.Builder, prefix, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(prefix)
	b.WriteString(value)
	b.WriteByte('\n')
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			fmt.Fprintf(b, "• %s\n", it)
		}
	}
}

func writeInline(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s: %s\n", title, strings.Join(items, ", "))
}

func writeTags(b *strings.Builder, tags []string) {
	if len(tags) == 0 {
		return
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "#") {
			t = "#" + t
		}
		out = append(out, t)
	}
	fmt.Fprintf(b, "\n%s\n", strings.Join(out, " "))
}

func writeSources(b *strings.Builder, meta strategy.GroundingMetadata) {
	if len(meta.Sources) == 0 {
		return
	}
	b.WriteString("\nSources:\n")
	for _, src := range meta.Sources {
		if src.Title != "" {
			fmt.Fprintf(b, "• %s: %s\n", src.Title, src.URI)
			continue
		}
		fmt.Fprintf(b, "• %s\n", src.URI)
	}
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
