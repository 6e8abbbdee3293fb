package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"viral-strategy-ai/internal/strategy"
	"viral-strategy-ai/internal/telegram"
)

const historyPageSize = 10

// Commands is the bot's command menu.
func Commands() []telegram.Command {
	return []telegram.Command{
		{Name: "start", Description: "Welcome and quick guide"},
		{Name: "help", Description: "How to use the assistant"},
		{Name: "mode", Description: "generate | refine | spy | trend"},
		{Name: "platform", Description: "tiktok | instagram | youtube | linkedin | twitter | facebook"},
		{Name: "format", Description: "Instagram reel/post, YouTube shorts/long"},
		{Name: "topic", Description: "Set the topic"},
		{Name: "draft", Description: "Set the draft to refine"},
		{Name: "competitor", Description: "Set the competitor handle or URL"},
		{Name: "niche", Description: "Set the niche"},
		{Name: "goal", Description: "Set the goal"},
		{Name: "tone", Description: "Set tones, comma separated"},
		{Name: "keywords", Description: "Set keywords"},
		{Name: "geo", Description: "Set target geography"},
		{Name: "audience", Description: "Set target audience"},
		{Name: "brand", Description: "Set brand guidelines"},
		{Name: "settings", Description: "Show current settings"},
		{Name: "history", Description: "Recent analyses"},
		{Name: "clear", Description: "Clear history"},
		{Name: "reset", Description: "Reset settings"},
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return h.handleStart(ctx, chatID)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "mode":
		return h.handleMode(chatID, userID, args)
	case "platform":
		return h.handlePlatform(chatID, userID, args)
	case "format":
		return h.handleFormat(chatID, userID, args)
	case "topic":
		return h.setField(chatID, userID, "Topic", args, func(c *strategy.Config) { c.Topic = args })
	case "draft":
		return h.setField(chatID, userID, "Draft", args, func(c *strategy.Config) { c.Draft = args })
	case "competitor":
		return h.setField(chatID, userID, "Competitor", args, func(c *strategy.Config) { c.Competitor = args })
	case "niche":
		return h.setField(chatID, userID, "Niche", args, func(c *strategy.Config) { c.Niche = args })
	case "goal":
		return h.setField(chatID, userID, "Goal", args, func(c *strategy.Config) { c.Goal = args })
	case "tone":
		return h.setField(chatID, userID, "Tone", args, func(c *strategy.Config) { c.Tones = strategy.ParseTones(args) })
	case "keywords":
		return h.setField(chatID, userID, "Keywords", args, func(c *strategy.Config) { c.Keywords = args })
	case "geo":
		return h.setField(chatID, userID, "Geography", args, func(c *strategy.Config) { c.Geography = args })
	case "audience":
		return h.setField(chatID, userID, "Audience", args, func(c *strategy.Config) { c.Audience = args })
	case "brand":
		return h.setField(chatID, userID, "Brand guidelines", args, func(c *strategy.Config) { c.BrandGuidelines = args })
	case "settings":
		return h.tg.SendText(chatID, RenderSettings(h.states.Get(chatID, userID).Selection))
	case "history":
		return h.handleHistory(ctx, chatID, args)
	case "clear":
		if err := h.history.Clear(ctx, ownerFor(chatID)); err != nil {
			h.logger.Error("history clear failed", "chat_id", chatID, "err", err)
			return h.tg.SendText(chatID, "❌ Could not clear history. Try again.")
		}
		return h.tg.SendText(chatID, "✅ History cleared.")
	case "reset":
		h.states.Reset(chatID, userID)
		return h.tg.SendText(chatID, "✅ Settings reset to defaults.")
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID int64) error {
	owner := ownerFor(chatID)
	seen, err := h.history.OnboardingSeen(ctx, owner)
	if err != nil {
		h.logger.Warn("onboarding flag unavailable", "chat_id", chatID, "err", err)
	}
	if seen {
		return h.tg.SendText(chatID, "👋 Welcome back! Send a topic, a draft or media to analyze. /settings shows your setup.")
	}

	if err := h.tg.SendText(chatID, welcomeText+"\n\n"+helpText); err != nil {
		return err
	}
	if err := h.history.MarkOnboardingSeen(ctx, owner); err != nil {
		h.logger.Warn("onboarding flag not saved", "chat_id", chatID, "err", err)
	}
	return nil
}

func (h *Handler) handleMode(chatID, userID int64, args string) error {
	if args == "" {
		current := h.states.Get(chatID, userID).Selection.Mode
		return h.tg.SendText(chatID, optionList("Modes", strategy.Modes(), string(current), "/mode"))
	}

	mode, ok := strategy.ParseMode(args)
	if !ok {
		return h.tg.SendText(chatID, optionList("❌ Unknown mode. Choose one of", strategy.Modes(), "", "/mode"))
	}

	h.states.Update(chatID, userID, func(st *ChatState) { st.Selection.Mode = mode })
	return h.tg.SendText(chatID, fmt.Sprintf("✅ Mode: %s\nNow send your %s.", strategy.ModeName(mode), strategy.PrimaryField(mode)))
}

func (h *Handler) handlePlatform(chatID, userID int64, args string) error {
	if args == "" {
		current := h.states.Get(chatID, userID).Selection.Platform
		return h.tg.SendText(chatID, optionList("Platforms", strategy.Platforms(), string(current), "/platform"))
	}

	platform, ok := strategy.ParsePlatform(args)
	if !ok {
		return h.tg.SendText(chatID, optionList("❌ Unknown platform. Choose one of", strategy.Platforms(), "", "/platform"))
	}

	st := h.states.Update(chatID, userID, func(st *ChatState) {
		st.Selection.Platform = platform
		st.Selection.Format = ""
	})

	text := "✅ Platform: " + strategy.PlatformName(platform)
	if formats := strategy.Formats(platform); len(formats) > 0 {
		text += fmt.Sprintf("\nFormat: %s (change with /format)", st.Selection.Format)
	}
	return h.tg.SendText(chatID, text)
}

func (h *Handler) handleFormat(chatID, userID int64, args string) error {
	sel := h.states.Get(chatID, userID).Selection
	formats := strategy.Formats(sel.Platform)
	if len(formats) == 0 {
		return h.tg.SendText(chatID, strategy.PlatformName(sel.Platform)+" has no sub-formats.")
	}
	if args == "" {
		return h.tg.SendText(chatID, optionList("Formats", formats, sel.Format, "/format"))
	}

	st := h.states.Update(chatID, userID, func(st *ChatState) { st.Selection.Format = args })
	return h.tg.SendText(chatID, "✅ Format: "+st.Selection.Format)
}

func (h *Handler) setField(chatID, userID int64, label, value string, apply func(*strategy.Config)) error {
	h.states.Update(chatID, userID, func(st *ChatState) { apply(&st.Selection.Config) })
	if value == "" {
		return h.tg.SendText(chatID, "✅ "+label+" cleared.")
	}
	return h.tg.SendText(chatID, fmt.Sprintf("✅ %s: %s", label, shorten(value, 200)))
}

func (h *Handler) handleHistory(ctx context.Context, chatID int64, args string) error {
	items, err := h.history.List(ctx, ownerFor(chatID))
	if err != nil {
		h.logger.Error("history list failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not load history. Try again.")
	}

	if args == "" {
		return h.tg.SendText(chatID, RenderHistory(items, historyPageSize))
	}

	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > len(items) {
		return h.tg.SendText(chatID, fmt.Sprintf("❌ Pick a number between 1 and %d.", len(items)))
	}

	it := items[n-1]
	res, err := it.Result()
	if err != nil {
		h.logger.Warn("history item unreadable", "chat_id", chatID, "id", it.ID, "err", err)
		return h.tg.SendText(chatID, "❌ This entry can no longer be displayed.")
	}
	header := fmt.Sprintf("%s · %s · %s\n\n",
		strategy.ModeName(it.Mode), strategy.PlatformName(it.Platform), it.Timestamp.Local().Format("2006-01-02 15:04"))
	return h.tg.SendText(chatID, header+RenderResult(res))
}

func optionList(title string, options []strategy.NamedOption, current, command string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(":\n")
	for _, o := range options {
		marker := "•"
		if o.Key == current {
			marker = "✅"
		}
		fmt.Fprintf(&b, "%s %s %s - %s\n", marker, command, o.Key, o.Name)
	}
	return strings.TrimSpace(b.String())
}

const welcomeText = "🚀 Viral Strategy Assistant\n\n" +
	"I turn your ideas, drafts and media into platform-specific content strategies."

const helpText = "How it works:\n" +
	"1. Pick a mode with /mode: generate, refine, spy or trend.\n" +
	"2. Pick a platform with /platform (and /format for Instagram or YouTube).\n" +
	"3. Send text or media:\n" +
	"   • generate: a topic, photos or videos\n" +
	"   • refine: your draft or the media to audit\n" +
	"   • spy: a competitor handle or URL\n" +
	"   • trend: a niche\n\n" +
	"Fine-tune with /goal, /tone, /keywords, /geo, /audience and /brand.\n" +
	"See /settings, /history, /clear and /reset."
