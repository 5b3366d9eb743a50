package telegram

import (
	"fmt"

	"github.com/coconet/starshop/internal/broadcast"
)

const (
	roleUser      = "user"
	roleModerator = "moderator"
	roleAdmin     = "admin"
)

const welcomeText = `👋 <b>Welcome to CocoNet Bot!</b>

Here you can buy <b>Telegram Stars</b> and <b>Premium</b> without Fragment verification using TON.

👇 <b>Please choose your language:</b>`

const chooseLanguageText = "🌐 <b>Choose your language / Выберите язык:</b>"

const staleRequestText = "⏳ Заявка уже обработана или устарела."

func languageSetText(lang string) string {
	if lang == "ru" {
		return "✅ Язык установлен: <b>Русский</b>"
	}
	return "✅ Language set: <b>English</b>"
}

func helpText(lang, role string) string {
	switch role {
	case roleAdmin:
		return "👑 <b>Команды администратора</b>\n\n" +
			"/admin — панель статистики\n" +
			"/broadcast — рассылка всем пользователям\n" +
			"/language — сменить язык\n\n" +
			"Заявки модераторов приходят сюда на подтверждение."
	case roleModerator:
		return "🛡 <b>Права модератора</b>\n\n" +
			"/broadcast — предложить рассылку (нужно одобрение администратора)\n" +
			"/language — сменить язык\n\n" +
			"Статистика доступна только администратору."
	}

	if lang == "ru" {
		return "ℹ️ <b>Помощь</b>\n\n" +
			"/start — купить звёзды и Premium\n" +
			"/language — сменить язык"
	}
	return "ℹ️ <b>Help</b>\n\n" +
		"/start — buy Stars and Premium\n" +
		"/language — change language"
}

func noPermissionText(lang string) string {
	if lang == "ru" {
		return "⛔ Нет прав."
	}
	return "⛔ No permission."
}

func broadcastPromptText(lang string) string {
	if lang == "ru" {
		return "📢 <b>Режим рассылки активирован.</b>\n\n" +
			"Отправьте следующим сообщением <b>текст, фото или видео</b> (или перешлите пост), и он будет обработан."
	}
	return "📢 <b>Broadcast mode activated.</b>\n\n" +
		"Send the <b>text, photo or video</b> (or forward a post) as your next message and it will be processed."
}

func underReviewText(lang string) string {
	if lang == "ru" {
		return "📨 Заявка отправлена администратору на проверку."
	}
	return "📨 Your submission was sent to the admin for review."
}

// submitterName renders a moderator reference for admin-facing texts.
// Not every Telegram account has a username.
func submitterName(submitter string) string {
	if submitter == "" {
		return "модератора"
	}
	return "@" + submitter
}

func moderationPromptText(submitter string) string {
	return fmt.Sprintf("📬 <b>Заявка на рассылку</b> от %s\n\nОпубликовать этот пост всем пользователям?", submitterName(submitter))
}

func moderationApprovedText(submitter string) string {
	return fmt.Sprintf("✅ Заявка от %s одобрена. Рассылка запущена.", submitterName(submitter))
}

func moderationRejectedText(submitter string) string {
	return fmt.Sprintf("❌ Заявка от %s отклонена.", submitterName(submitter))
}

func approvedText(lang string) string {
	if lang == "ru" {
		return "✅ Ваша рассылка одобрена и запущена."
	}
	return "✅ Your broadcast was approved and is being delivered."
}

func rejectedText(lang string) string {
	if lang == "ru" {
		return "❌ Ваша рассылка отклонена администратором."
	}
	return "❌ Your broadcast was rejected by the admin."
}

func deliveryStartedText(lang string, recipients int) string {
	if lang == "ru" {
		return fmt.Sprintf("🚀 Рассылка запущена. Получателей: <b>%d</b>", recipients)
	}
	return fmt.Sprintf("🚀 Broadcast started. Recipients: <b>%d</b>", recipients)
}

func deliverySummaryText(lang string, res broadcast.Result) string {
	if lang == "ru" {
		return fmt.Sprintf("🏁 <b>Рассылка завершена.</b>\n\n✅ Доставлено: %d\n🚫 Заблокировали: %d", res.Delivered, res.Blocked)
	}
	return fmt.Sprintf("🏁 <b>Broadcast finished.</b>\n\n✅ Delivered: %d\n🚫 Blocked: %d", res.Delivered, res.Blocked)
}

func deliveryFailedText(lang string) string {
	if lang == "ru" {
		return "❌ Не удалось загрузить список получателей."
	}
	return "❌ Failed to load the recipient list."
}

func statsFailedText(lang string) string {
	if lang == "ru" {
		return "❌ Ошибка статистики."
	}
	return "❌ Stats error."
}
