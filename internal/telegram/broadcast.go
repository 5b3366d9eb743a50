package telegram

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/coconet/starshop/internal/broadcast"
)

// broadcastHandler starts the broadcast workflow. Privileged chats either
// supply the content inline (legacy "/broadcast <text>" form) or enter a wait
// state and send it as the next message.
func (b *Bot) broadcastHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	lang := b.userLang(chatID)

	if !b.cfg.IsAdmin(chatID) && !b.cfg.IsModerator(chatID) {
		b.sendMessage(ctx, chatID, noPermissionText(lang), nil)
		return
	}

	username := ""
	if update.Message.From != nil {
		username = update.Message.From.Username
	}

	if text := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/broadcast")); text != "" {
		b.submitContent(ctx, chatID, username, broadcast.Content{
			ChatID:    chatID,
			MessageID: update.Message.ID,
			Text:      text,
		})
		return
	}

	b.broadcasts.SetWaiting(chatID)
	b.sendMessage(ctx, chatID, broadcastPromptText(lang), nil)
}

// submitContent branches on the submitter's role: admin content is delivered
// right away, moderator content goes through admin approval.
func (b *Bot) submitContent(ctx context.Context, chatID int64, username string, content broadcast.Content) {
	if b.cfg.IsAdmin(chatID) {
		b.deliver(ctx, chatID, content)
		return
	}

	req := b.broadcasts.AddPending(chatID, username, content)
	b.log.Info("broadcast pending moderation",
		"request_id", req.ID,
		"moderator_chat", chatID,
		"submitter", username,
	)

	// Preview the content in the admin chat, then attach the decision prompt
	if err := b.Send(ctx, b.cfg.AdminChatID, content); err != nil {
		b.log.Error("copy broadcast preview", "request_id", req.ID, "error", err)
	}
	b.sendMessage(ctx, b.cfg.AdminChatID, moderationPromptText(username), ApproveRejectKeyboard(req.ID))

	b.sendMessage(ctx, chatID, underReviewText(b.userLang(chatID)), nil)
}

// handleDecision resolves an approve/reject callback from the admin. Decisions
// from any other chat are ignored; decisions on an already-handled request get
// a stale notice.
func (b *Bot) handleDecision(ctx context.Context, cb *models.CallbackQuery, requestID string, approve bool) {
	if !b.cfg.IsAdmin(cb.From.ID) {
		b.answerCallback(ctx, cb.ID, "")
		return
	}

	req, ok := b.broadcasts.TakePending(requestID)
	if !ok {
		b.answerCallback(ctx, cb.ID, staleRequestText)
		return
	}

	b.answerCallback(ctx, cb.ID, "")

	modLang := b.userLang(req.ModeratorChat)
	if !approve {
		b.editMessage(ctx, cb.Message, moderationRejectedText(req.Submitter), nil)
		b.sendMessage(ctx, req.ModeratorChat, rejectedText(modLang), nil)
		return
	}

	b.editMessage(ctx, cb.Message, moderationApprovedText(req.Submitter), nil)
	b.sendMessage(ctx, req.ModeratorChat, approvedText(modLang), nil)

	b.deliver(ctx, cb.From.ID, req.Content)
}

// deliver fans the content out to a send-time snapshot of the user directory
// and reports progress to the initiating chat.
func (b *Bot) deliver(ctx context.Context, initiator int64, content broadcast.Content) {
	lang := b.userLang(initiator)

	recipients, err := b.storage.ListChatIDs()
	if err != nil {
		b.log.Error("list broadcast recipients", "error", err)
		b.sendMessage(ctx, initiator, deliveryFailedText(lang), nil)
		return
	}

	b.sendMessage(ctx, initiator, deliveryStartedText(lang, len(recipients)), nil)

	res := broadcast.Deliver(ctx, b, recipients, content, b.cfg.BroadcastDelay, b.log)

	b.log.Info("broadcast complete",
		"initiator", initiator,
		"delivered", res.Delivered,
		"blocked", res.Blocked,
	)
	b.sendMessage(ctx, initiator, deliverySummaryText(lang, res), nil)
}

// Send implements broadcast.Sender. Referenced messages are copied so the
// original formatting and attachments survive; the legacy text form is sent
// as a plain message.
func (b *Bot) Send(ctx context.Context, chatID int64, content broadcast.Content) error {
	if content.Text != "" {
		_, err := b.client.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      content.Text,
			ParseMode: models.ParseModeHTML,
		})
		return err
	}

	_, err := b.client.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     chatID,
		FromChatID: content.ChatID,
		MessageID:  content.MessageID,
	})
	return err
}
