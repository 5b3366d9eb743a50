package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/coconet/starshop/internal/storage"
)

const statsWindowDays = 30

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, welcomeText, LanguageKeyboard(b.cfg.WebAppURL))
}

func (b *Bot) languageHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, chooseLanguageText, LanguageOnlyKeyboard())
}

func (b *Bot) helpHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	lang := b.userLang(chatID)

	role := roleUser
	switch {
	case b.cfg.IsAdmin(chatID):
		role = roleAdmin
	case b.cfg.IsModerator(chatID):
		role = roleModerator
	}

	b.sendMessage(ctx, chatID, helpText(lang, role), nil)
}

func (b *Bot) adminHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	if !b.cfg.IsAdmin(chatID) {
		return
	}

	tonUSD, live := b.rates.TonUSD(ctx)
	if !live {
		b.log.Warn("ton rate lookup failed, using fallback", "rate", tonUSD)
	}

	allTime, err := b.storage.OrderStats(0)
	if err != nil {
		b.log.Error("order stats", "error", err)
		b.sendMessage(ctx, chatID, statsFailedText(b.userLang(chatID)), nil)
		return
	}

	monthly, err := b.storage.OrderStats(statsWindowDays)
	if err != nil {
		b.log.Error("order stats", "error", err)
		b.sendMessage(ctx, chatID, statsFailedText(b.userLang(chatID)), nil)
		return
	}

	usersCount, err := b.storage.CountUsers()
	if err != nil {
		b.log.Error("count users", "error", err)
	}

	b.sendMessage(ctx, chatID, b.adminPanelText(allTime, monthly, usersCount, tonUSD), nil)
}

func (b *Bot) adminPanelText(allTime, monthly *storage.OrderStats, usersCount int, tonUSD float64) string {
	margin := float64(allTime.TotalStars) * (b.cfg.StarSellPriceTON - b.cfg.StarBuyPriceTON)
	gas := float64(allTime.Count) * b.cfg.GasPerOrderTON
	net := margin - gas

	return fmt.Sprintf(
		"👑 <b>ПАНЕЛЬ АДМИНИСТРАТОРА</b>\n\n"+
			"👥 <b>Аудитория бота:</b> %d чел.\n\n"+
			"📅 <b>ЗА МЕСЯЦ:</b>\n"+
			"💵 <b>Доход:</b> $%.2f\n"+
			"💎 <b>Крипта:</b> %.2f TON\n"+
			"⭐ <b>Звезд:</b> %d\n"+
			"🛒 <b>Покупок:</b> %d\n\n"+
			"📈 <b>ЗА ВСЕ ВРЕМЯ:</b>\n"+
			"💰 <b>Оборот:</b> $%.2f\n"+
			"💎 <b>Крипта:</b> %.2f TON\n"+
			"⭐ <b>Звезд:</b> %d\n"+
			"📦 <b>Заказов:</b> %d\n\n"+
			"📊 <b>ОЦЕНКА ПРИБЫЛИ:</b>\n"+
			"💹 <b>Маржа:</b> %.2f TON\n"+
			"⛽ <b>Газ:</b> %.2f TON\n"+
			"🏦 <b>Чистыми:</b> %.2f TON\n\n"+
			"ℹ️ <i>Курс: 1 TON ≈ $%.2f</i>",
		usersCount,
		monthly.TotalTON*tonUSD, monthly.TotalTON, monthly.TotalStars, monthly.Count,
		allTime.TotalTON*tonUSD, allTime.TotalTON, allTime.TotalStars, allTime.Count,
		margin, gas, net,
		tonUSD,
	)
}

// --- Callbacks ---

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	data := cb.Data

	switch {
	case data == "set_lang_en":
		b.answerCallback(ctx, cb.ID, "")
		b.handleSetLanguage(ctx, cb, "en")
	case data == "set_lang_ru":
		b.answerCallback(ctx, cb.ID, "")
		b.handleSetLanguage(ctx, cb, "ru")
	case strings.HasPrefix(data, "approve_"):
		b.handleDecision(ctx, cb, strings.TrimPrefix(data, "approve_"), true)
	case strings.HasPrefix(data, "reject_"):
		b.handleDecision(ctx, cb, strings.TrimPrefix(data, "reject_"), false)
	default:
		b.answerCallback(ctx, cb.ID, "")
		b.log.Warn("unknown callback", "data", data, "user_id", cb.From.ID)
	}
}

func (b *Bot) handleSetLanguage(ctx context.Context, cb *models.CallbackQuery, lang string) {
	chatID := cb.From.ID

	err := b.storage.SetLanguage(chatID, lang)
	if errors.Is(err, storage.ErrNotFound) {
		// Row can be missing when the button outlived a wiped database
		if err = b.storage.UpsertUser(chatID, cb.From.Username); err == nil {
			err = b.storage.SetLanguage(chatID, lang)
		}
	}
	if err != nil {
		b.log.Error("set language", "chat_id", chatID, "error", err)
		return
	}

	b.editMessage(ctx, cb.Message, languageSetText(lang), nil)
}

func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	params := &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	}
	if text != "" {
		params.Text = text
		params.ShowAlert = true
	}

	if _, err := b.client.AnswerCallbackQuery(ctx, params); err != nil {
		b.log.Error("answer callback", "error", err)
	}
}
