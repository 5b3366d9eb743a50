package telegram

import "github.com/go-telegram/bot/models"

// LanguageKeyboard returns the welcome keyboard: language choice plus the
// storefront web app launcher.
func LanguageKeyboard(webAppURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🇺🇸 English", CallbackData: "set_lang_en"},
				{Text: "🇷🇺 Русский", CallbackData: "set_lang_ru"},
			},
			{
				{Text: "🚀 Open App / Открыть", WebApp: &models.WebAppInfo{URL: webAppURL}},
			},
		},
	}
}

// LanguageOnlyKeyboard returns the /language keyboard
func LanguageOnlyKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🇺🇸 English", CallbackData: "set_lang_en"},
				{Text: "🇷🇺 Русский", CallbackData: "set_lang_ru"},
			},
		},
	}
}

// ApproveRejectKeyboard returns the moderation decision keyboard tagged with
// the pending request id.
func ApproveRejectKeyboard(requestID string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Одобрить", CallbackData: "approve_" + requestID},
				{Text: "❌ Отклонить", CallbackData: "reject_" + requestID},
			},
		},
	}
}
