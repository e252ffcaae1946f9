package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsdesk/app/database"
	"newsdesk/app/moderation"
)

const (
	actionApproveRaw      = "approve_raw"
	actionPublishAsIs     = "as_is"
	actionRejectRaw       = "reject_raw"
	actionPublishChannel  = "pub_channel"
	actionPublishSite     = "pub_site"
	actionPublishBoth     = "pub_both"
	actionRejectProcessed = "reject_proc"
)

func callbackData(action, id string) string {
	return action + "|" + id
}

// SchedulerControl lets operator commands trigger scheduler work out of band.
type SchedulerControl interface {
	PollNow(ctx context.Context) error
	DispatchNow(ctx context.Context) (bool, error)
}

// Handler runs the Telegram update loop: operator commands for feed and queue
// management, and callback actions driving the moderation state machine.
type Handler struct {
	api        *tgbotapi.BotAPI
	service    *moderation.Service
	sourceRepo database.SourceRepository
	queueRepo  database.QueueRepository
	lockRepo   database.LockRepository
	scheduler  SchedulerControl
	moderators map[int64]bool
}

func NewHandler(api *tgbotapi.BotAPI, service *moderation.Service,
	sourceRepo database.SourceRepository, queueRepo database.QueueRepository,
	lockRepo database.LockRepository, scheduler SchedulerControl,
	moderatorIDs []int64) *Handler {
	moderators := make(map[int64]bool, len(moderatorIDs))
	for _, id := range moderatorIDs {
		moderators[id] = true
	}

	return &Handler{
		api:        api,
		service:    service,
		sourceRepo: sourceRepo,
		queueRepo:  queueRepo,
		lockRepo:   lockRepo,
		scheduler:  scheduler,
		moderators: moderators,
	}
}

// Run consumes updates until the context is cancelled. Each update is handled
// in its own goroutine so a slow rewrite call never blocks other moderators.
func (h *Handler) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := h.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in update handler", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || !h.moderators[cq.From.ID] {
		h.answerCallback(cq.ID, "❌ You are not a moderator.")
		return
	}

	action, id, ok := strings.Cut(cq.Data, "|")
	if !ok {
		h.answerCallback(cq.ID, "")
		return
	}

	var err error
	var ack string

	switch action {
	case actionApproveRaw:
		ack = "✅ Approved for rewrite"
		h.answerCallback(cq.ID, ack)
		err = h.service.ApproveRaw(ctx, id)
	case actionPublishAsIs:
		ack = "📤 Publishing as is"
		h.answerCallback(cq.ID, ack)
		err = h.service.PublishAsIs(ctx, id)
	case actionRejectRaw:
		ack = "❌ Rejected"
		h.answerCallback(cq.ID, ack)
		err = h.service.RejectRaw(ctx, id)
	case actionRejectProcessed:
		ack = "❌ Rejected"
		h.answerCallback(cq.ID, ack)
		err = h.service.RejectProcessed(ctx, id)
	case actionPublishChannel, actionPublishSite, actionPublishBoth:
		h.answerCallback(cq.ID, "")
		err = h.handlePublish(ctx, cq, action, id)
	default:
		h.answerCallback(cq.ID, "")
		return
	}

	if err != nil {
		h.reportActionError(cq, err)
	}
}

func (h *Handler) handlePublish(ctx context.Context, cq *tgbotapi.CallbackQuery, action, id string) error {
	targets := moderation.Targets{
		Channel: action == actionPublishChannel || action == actionPublishBoth,
		Site:    action == actionPublishSite || action == actionPublishBoth,
	}

	_, err := h.service.Publish(ctx, id, targets)
	return err
}

// reportActionError tells the acting moderator what happened. A resolved item
// gets "not found"; a failed publish keeps the pending handle, so the same
// button can be pressed again.
func (h *Handler) reportActionError(cq *tgbotapi.CallbackQuery, err error) {
	var text string
	if errors.Is(err, moderation.ErrNotPending) {
		text = "❌ Item not found. Another moderator already handled it."
	} else {
		text = fmt.Sprintf("❌ Action failed: %v. You can press the button again.", err)
	}

	if cq.Message != nil && cq.Message.Chat != nil {
		msg := tgbotapi.NewMessage(cq.Message.Chat.ID, text)
		if _, sendErr := h.api.Send(msg); sendErr != nil {
			slog.Warn("Failed to report action error", "error", sendErr)
		}
	}
}

func (h *Handler) answerCallback(id, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		slog.Debug("Failed to answer callback", "error", err)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if !h.moderators[msg.From.ID] {
		h.reply(msg, "❌ You don't have access to this bot.")
		return
	}

	if !msg.IsCommand() {
		h.reply(msg, "ℹ️ Use /help to see the available commands.")
		return
	}

	switch msg.Command() {
	case "start", "help":
		h.reply(msg, helpText)
	case "addsource":
		h.cmdAddSource(msg)
	case "removesource":
		h.cmdRemoveSource(msg)
	case "listsources":
		h.cmdListSources(msg)
	case "queue":
		h.cmdQueueStatus(msg)
	case "checknow":
		h.cmdCheckNow(ctx, msg)
	case "postnext":
		h.cmdPostNext(ctx, msg)
	case "skipnext":
		h.cmdSkipNext(msg)
	default:
		h.reply(msg, "ℹ️ Unknown command. Use /help.")
	}
}

const helpText = `🤖 Newsdesk moderation bot

Source management:
/addsource <url> — register an RSS feed
/removesource <url> — remove an RSS feed
/listsources — list registered feeds

Queue management:
/queue — queue and moderation status
/checknow — poll all feeds immediately
/postnext — push the next queued item into review
/skipnext — unstick stale processing items

Moderation flow:
1. A raw item is broadcast to all moderators.
2. Approve sends it through the rewrite service; "publish as is" skips it.
3. The processed item comes back for the final publish decision
   (site, channel, both, or reject).
The next item waits until the current decision is made.`

func (h *Handler) cmdAddSource(msg *tgbotapi.Message) {
	url := strings.TrimSpace(msg.CommandArguments())
	if url == "" {
		h.reply(msg, "❌ Usage: /addsource https://example.com/rss")
		return
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		h.reply(msg, "❌ The URL must start with http:// or https://")
		return
	}

	if err := h.sourceRepo.AddSource(url); err != nil {
		h.reply(msg, fmt.Sprintf("❌ Failed to add source: %v", err))
		return
	}

	h.reply(msg, "✅ Feed registered:\n"+url)
}

func (h *Handler) cmdRemoveSource(msg *tgbotapi.Message) {
	url := strings.TrimSpace(msg.CommandArguments())
	if url == "" {
		h.reply(msg, "❌ Usage: /removesource https://example.com/rss")
		return
	}

	if err := h.sourceRepo.RemoveSource(url); err != nil {
		h.reply(msg, fmt.Sprintf("❌ Failed to remove source: %v", err))
		return
	}

	h.reply(msg, "✅ Feed removed:\n"+url)
}

func (h *Handler) cmdListSources(msg *tgbotapi.Message) {
	sources, err := h.sourceRepo.GetSources()
	if err != nil {
		h.reply(msg, fmt.Sprintf("❌ Failed to list sources: %v", err))
		return
	}

	if len(sources) == 0 {
		h.reply(msg, "📭 No feeds registered. Use /addsource to add one.")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Registered feeds:\n\n")
	for i, source := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, source.URL)
	}
	fmt.Fprintf(&b, "\nTotal: %d", len(sources))

	h.reply(msg, b.String())
}

func (h *Handler) cmdQueueStatus(msg *tgbotapi.Message) {
	queueSize, err := h.queueRepo.Size()
	if err != nil {
		h.reply(msg, fmt.Sprintf("❌ Failed to read queue: %v", err))
		return
	}

	processing, err := h.queueRepo.ProcessingCount()
	if err != nil {
		h.reply(msg, fmt.Sprintf("❌ Failed to read queue: %v", err))
		return
	}

	raw, processed := h.service.PendingCounts()

	h.reply(msg, fmt.Sprintf(
		"📊 Status\n\n"+
			"• 📥 Items in queue: %d\n"+
			"• ⚙️ Items marked processing: %d\n"+
			"• ⏳ Raw items awaiting review: %d\n"+
			"• ✍️ Processed items awaiting decision: %d\n"+
			"• 👥 Moderators: %d",
		queueSize, processing, raw, processed, len(h.moderators)))
}

func (h *Handler) cmdCheckNow(ctx context.Context, msg *tgbotapi.Message) {
	h.reply(msg, "🔄 Polling all feeds...")
	if err := h.scheduler.PollNow(ctx); err != nil {
		h.reply(msg, fmt.Sprintf("❌ Poll failed: %v", err))
		return
	}
	h.reply(msg, "✅ Poll tasks queued. New items will show up for review shortly.")
}

func (h *Handler) cmdPostNext(ctx context.Context, msg *tgbotapi.Message) {
	dispatched, err := h.scheduler.DispatchNow(ctx)
	if err != nil {
		h.reply(msg, fmt.Sprintf("❌ Dispatch failed: %v", err))
		return
	}
	if !dispatched {
		h.reply(msg, "❌ Nothing to dispatch: the queue is empty or an item is already in review.")
		return
	}
	h.reply(msg, "✅ Next item sent to all moderators for review.")
}

func (h *Handler) cmdSkipNext(msg *tgbotapi.Message) {
	swept, err := h.queueRepo.SweepStale(0)
	if err != nil {
		h.reply(msg, fmt.Sprintf("❌ Sweep failed: %v", err))
		return
	}
	if err := h.lockRepo.Release(); err != nil {
		h.reply(msg, fmt.Sprintf("❌ Failed to release moderation lock: %v", err))
		return
	}
	h.reply(msg, fmt.Sprintf("✅ Cleared %d stuck item(s) and released the moderation lock.", swept))
}

func (h *Handler) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := h.api.Send(reply); err != nil {
		slog.Warn("Failed to send reply", "chat", msg.Chat.ID, "error", err)
	}
}
