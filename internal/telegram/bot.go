package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/coconet/starshop/internal/broadcast"
	"github.com/coconet/starshop/internal/config"
	"github.com/coconet/starshop/internal/rates"
	"github.com/coconet/starshop/internal/storage"
)

// tgClient is the outbound messaging surface the handlers use. *bot.Bot
// satisfies it; tests substitute a fake.
type tgClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	CopyMessage(ctx context.Context, params *bot.CopyMessageParams) (*models.MessageID, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot        *bot.Bot
	client     tgClient
	cfg        *config.Config
	storage    *storage.Storage
	broadcasts *broadcast.Manager
	rates      *rates.Client
	log        *slog.Logger
}

// New creates a new telegram bot
func New(cfg *config.Config, store *storage.Storage, ratesClient *rates.Client, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:        cfg,
		storage:    store,
		broadcasts: broadcast.NewManager(),
		rates:      ratesClient,
		log:        log,
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.trackUsers),
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot
	b.client = tgBot

	// Register command handlers
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/language", bot.MatchTypeExact, b.languageHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, b.helpHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/admin", bot.MatchTypeExact, b.adminHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/broadcast", bot.MatchTypeExact, b.broadcastHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/broadcast ", bot.MatchTypePrefix, b.broadcastHandler)

	return b, nil
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// GetBot returns the underlying bot instance
func (b *Bot) GetBot() *bot.Bot {
	return b.bot
}

// trackUsers runs before routing on every update. It records private-chat
// users in the directory and clears a pending broadcast wait state when the
// chat sends a command instead of content.
func (b *Bot) trackUsers(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
		if update.Message != nil && update.Message.Chat.Type == models.ChatTypePrivate {
			chatID := update.Message.Chat.ID

			username := ""
			if update.Message.From != nil {
				username = update.Message.From.Username
			}

			if err := b.storage.UpsertUser(chatID, username); err != nil {
				b.log.Error("upsert user", "chat_id", chatID, "error", err)
			}

			if strings.HasPrefix(update.Message.Text, "/") {
				if b.broadcasts.ClearWaiting(chatID) {
					b.log.Info("broadcast abandoned", "chat_id", chatID)
				}
			}
		}

		next(ctx, tgBot, update)
	}
}

// defaultHandler consumes the next message from chats in the broadcast wait
// state. Anything else, unknown commands included, is silently ignored.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	// Most traffic is not broadcast content; check under the read lock
	// first. ClearWaiting stays the decisive gate so two concurrent
	// content messages cannot both submit.
	if !b.broadcasts.IsWaiting(chatID) {
		return
	}
	if !b.broadcasts.ClearWaiting(chatID) {
		return
	}

	content := broadcast.Content{
		ChatID:    chatID,
		MessageID: update.Message.ID,
	}

	username := ""
	if update.Message.From != nil {
		username = update.Message.From.Username
	}

	b.submitContent(ctx, chatID, username, content)
}

// --- Helpers ---

func (b *Bot) userLang(chatID int64) string {
	user, err := b.storage.GetUser(chatID)
	if err != nil || user.Language == "" {
		return "en"
	}
	return user.Language
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.client.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.client.EditMessageText(ctx, params)
	if err != nil {
		b.log.Error("edit message", "error", err)
	}
}

// NotifyAdmin sends a message to the configured admin chat. The HTTP facade
// uses it to report new orders.
func (b *Bot) NotifyAdmin(ctx context.Context, text string) error {
	_, err := b.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    b.cfg.AdminChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	return err
}
