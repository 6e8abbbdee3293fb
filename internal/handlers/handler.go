package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"viral-strategy-ai/internal/analyzer"
	"viral-strategy-ai/internal/history"
	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/mediagroup"
	"viral-strategy-ai/internal/strategy"
	"viral-strategy-ai/internal/telegram"
)

// Messenger is the part of the bot transport the handlers use. *telegram.Client satisfies it.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTyping(chatID int64)
	OpenFile(ctx context.Context, fileID string) (telegram.Download, error)
}

// Runner executes one analysis. *analyzer.Analyzer satisfies it.
type Runner interface {
	Run(ctx context.Context, req analyzer.Request) (analyzer.Outcome, error)
}

type Options struct {
	Telegram Messenger
	Analyzer Runner
	History  *history.Store
	States   *StateStore
	Policy   media.Policy
	SpoolDir string
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	analyzer   Runner
	history    *history.Store
	states     *StateStore
	policy     media.Policy
	spoolDir   string
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	states := opts.States
	if states == nil {
		states = NewStateStore()
	}

	store := opts.History
	if store == nil {
		store = history.NewStore(history.Options{Logger: logger})
	}

	policy := opts.Policy
	if policy.MaxFileBytes <= 0 {
		policy.MaxFileBytes = media.DefaultMaxFileBytes
	}

	return &Handler{
		tg:       opts.Telegram,
		analyzer: opts.Analyzer,
		history:  store,
		states:   states,
		policy:   policy,
		spoolDir: opts.SpoolDir,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if ref, ok := attachment(msg); ok {
		if msg.MediaGroupID != "" && h.aggregator != nil {
			h.aggregator.Add(mediagroup.Item{
				ChatID:       chatID,
				UserID:       userID,
				Username:     msg.From.UserName,
				MediaGroupID: msg.MediaGroupID,
				Caption:      msg.Caption,
				File:         ref,
			})
			return nil
		}
		return h.analyze(ctx, chatID, userID, msg.Caption, []mediagroup.FileRef{ref})
	}

	if text := strings.TrimSpace(msg.Text); text != "" {
		return h.analyze(ctx, chatID, userID, text, nil)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.analyze(ctx, group.ChatID, group.UserID, group.Caption, group.Files); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

// analyze runs one analysis for the chat. text, when present, fills the mode's primary field.
func (h *Handler) analyze(ctx context.Context, chatID, userID int64, text string, refs []mediagroup.FileRef) error {
	if !h.states.TryAcquire(chatID) {
		return h.tg.SendText(chatID, "⏳ An analysis is already running in this chat. Wait for it to finish.")
	}
	defer h.states.Release(chatID)

	st := h.states.Update(chatID, userID, func(st *ChatState) {
		st.Selection = st.Selection.WithPrimary(text)
	})

	intake, err := media.NewIntake(h.spoolDir, h.policy)
	if err != nil {
		return fmt.Errorf("open intake: %w", err)
	}
	defer intake.Close()

	if len(refs) > 0 {
		h.tg.SendTyping(chatID)
		notices, err := h.collect(ctx, intake, refs)
		if err != nil {
			h.logger.Error("attachment download failed", "chat_id", chatID, "err", err)
			return h.tg.SendText(chatID, "❌ Could not download the attachment from Telegram. Send it again.")
		}
		for _, n := range notices {
			if err := h.tg.SendText(chatID, "⚠️ "+n.Message); err != nil {
				return err
			}
		}
	}

	sel := st.Selection
	files := intake.Files()

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("🔎 %s for %s. This can take a minute...",
		strategy.ModeName(sel.Mode), strategy.PlatformName(sel.Platform)))

	out, err := h.analyzer.Run(ctx, analyzer.Request{
		Owner:     ownerFor(chatID),
		Selection: sel,
		Files:     files,
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.Warn("analysis failed", "chat_id", chatID, "kind", analyzer.KindOf(err), "err", err)
		}
		return h.tg.SendText(chatID, "❌ "+analyzer.UserMessage(err))
	}

	return h.tg.SendText(chatID, RenderResult(out.Result))
}

// collect downloads attachments in parallel and spools them into intake in their original order.
func (h *Handler) collect(ctx context.Context, intake *media.Intake, refs []mediagroup.FileRef) ([]media.Notice, error) {
	var notices []media.Notice

	type downloaded struct {
		data     []byte
		mimeType string
		skipped  bool
	}

	downloads := make([]downloaded, len(refs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, ref := range refs {
		if ref.Size > 0 && h.policy.Oversize(ref.Size) {
			downloads[i].skipped = true
			notices = append(notices, media.Notice{
				Name:    fileName(ref, i),
				Message: fmt.Sprintf("%s is too large and was skipped.", fileName(ref, i)),
			})
			continue
		}

		eg.Go(func() error {
			d, err := h.tg.OpenFile(egCtx, ref.ID)
			if err != nil {
				return fmt.Errorf("open %s: %w", fileName(ref, i), err)
			}
			defer d.Body.Close()

			data, err := io.ReadAll(io.LimitReader(d.Body, h.policy.MaxFileBytes))
			if err != nil {
				return fmt.Errorf("read %s: %w", fileName(ref, i), err)
			}

			mimeType := ref.MimeType
			if mimeType == "" {
				mimeType = d.MimeType
			}
			downloads[i] = downloaded{data: data, mimeType: mimeType}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, d := range downloads {
		if d.skipped {
			continue
		}
		_, notice, err := intake.Add(fileName(refs[i], i), d.mimeType, bytes.NewReader(d.data))
		if err != nil {
			return nil, err
		}
		if notice != nil {
			notices = append(notices, *notice)
		}
	}
	return notices, nil
}

// attachment picks the file carried by a message: the largest photo size, a video, an
// animation or a document.
func attachment(msg *tgbotapi.Message) (mediagroup.FileRef, bool) {
	switch {
	case len(msg.Photo) > 0:
		p := msg.Photo[len(msg.Photo)-1]
		return mediagroup.FileRef{ID: p.FileID, MimeType: "image/jpeg", Size: int64(p.FileSize)}, true
	case msg.Video != nil:
		v := msg.Video
		return mediagroup.FileRef{ID: v.FileID, Name: v.FileName, MimeType: v.MimeType, Size: int64(v.FileSize)}, true
	case msg.Animation != nil:
		a := msg.Animation
		return mediagroup.FileRef{ID: a.FileID, Name: a.FileName, MimeType: a.MimeType, Size: int64(a.FileSize)}, true
	case msg.Document != nil:
		d := msg.Document
		return mediagroup.FileRef{ID: d.FileID, Name: d.FileName, MimeType: d.MimeType, Size: int64(d.FileSize)}, true
	}
	return mediagroup.FileRef{}, false
}

func fileName(ref mediagroup.FileRef, i int) string {
	if name := path.Base(strings.TrimSpace(ref.Name)); name != "" && name != "." && name != "/" {
		return name
	}
	ext := ".bin"
	switch media.KindOf(ref.MimeType) {
	case media.KindImage:
		ext = ".jpg"
	case media.KindVideo:
		ext = ".mp4"
	}
	return "attachment-" + strconv.Itoa(i+1) + ext
}

// ownerFor scopes history to a chat.
func ownerFor(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}
