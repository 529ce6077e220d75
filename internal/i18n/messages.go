package i18n

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyStart          = "start"
	KeyHelp           = "help"
	KeyHelpAdmin      = "help.admin"
	KeyStylesHeader   = "styles.header"
	KeyStyleSet       = "style.set"
	KeyStyleUnknown   = "style.unknown"
	KeyFormatSet      = "format.set"
	KeyFormatUsage    = "format.usage"
	KeySlidesSet      = "slides.set"
	KeySlidesUsage    = "slides.usage"
	KeyPhotoOn        = "photo.on"
	KeyPhotoOff       = "photo.off"
	KeyPhotoUsage     = "photo.usage"
	KeyPhotoForbidden = "photo.forbidden"
	KeyStatus         = "status"
	KeyStatusPro      = "status.pro"
	KeyProOffer       = "pro.offer"
	KeyProButton      = "pro.button"
	KeyProDisabled    = "pro.disabled"
	KeyHistoryEmpty   = "history.empty"
	KeyHistoryHeader  = "history.header"
	KeyHistoryItem    = "history.item"
	KeyGenerating     = "generating"
	KeyBusy           = "busy"
	KeyLimit          = "limit"
	KeyGenericError   = "error.generic"
	KeyInvalidRequest = "error.invalid"
	KeyAdminOnly      = "admin.only"
	KeyStats          = "stats"
	KeyGrantUsage     = "grant.usage"
	KeyGrantDone      = "grant.done"
	KeyDelivered      = "delivered"
	KeyEditButton     = "edit.button"
	KeyOpenButton     = "open.button"
	KeyJobFailed      = "job.failed"
	KeyPaymentDone    = "payment.done"

	KeyReasonTimeout = "reason.timeout"
	KeyReasonService = "reason.service"
	KeyReasonInvalid = "reason.invalid"
	KeyReasonConfig  = "reason.config"
)

var supported = []language.Tag{language.English, language.Russian}

var matcher = language.NewMatcher(supported)

var entries = map[string][2]string{
	KeyStart: {
		"👋 Hi %s! Send me any topic and I will turn it into an Instagram carousel.\n\nStyle: %s · Format: %s · Slides: %d\n/styles shows all templates, /help lists commands.",
		"👋 Привет, %s! Пришли любую тему, и я превращу её в карусель для Instagram.\n\nСтиль: %s · Формат: %s · Слайдов: %d\n/styles покажет все шаблоны, /help - список команд.",
	},
	KeyHelp: {
		"Send a topic as a message to generate a carousel.\n\n/styles - list templates\n/style <id> - choose a template\n/format square|portrait|stories\n/slides <n> - number of slides\n/photo on|off - Photo Mode\n/status - plan and usage\n/history - recent carousels\n/pro - upgrade to Pro",
		"Отправь тему сообщением, чтобы создать карусель.\n\n/styles - список шаблонов\n/style <id> - выбрать шаблон\n/format square|portrait|stories\n/slides <n> - количество слайдов\n/photo on|off - фото-режим\n/status - тариф и лимиты\n/history - последние карусели\n/pro - перейти на Pro",
	},
	KeyHelpAdmin: {
		"\n\nAdmin:\n/stats - service statistics\n/grant <telegram_id> <days> - grant Pro",
		"\n\nАдмин:\n/stats - статистика сервиса\n/grant <telegram_id> <дней> - выдать Pro",
	},
	KeyStylesHeader:   {"🎨 Available styles:", "🎨 Доступные стили:"},
	KeyStyleSet:       {"Style set to %s.", "Стиль изменён на %s."},
	KeyStyleUnknown:   {"Unknown style %q. Use /styles to see the list.", "Неизвестный стиль %q. Список: /styles"},
	KeyFormatSet:      {"Format set to %s.", "Формат изменён на %s."},
	KeyFormatUsage:    {"Usage: /format square|portrait|stories", "Использование: /format square|portrait|stories"},
	KeySlidesSet:      {"New carousels will have %d slides.", "В новых каруселях будет %d слайдов."},
	KeySlidesUsage:    {"Usage: /slides <%d-%d>", "Использование: /slides <%d-%d>"},
	KeyPhotoOn:        {"📸 Photo Mode is on.", "📸 Фото-режим включён."},
	KeyPhotoOff:       {"Photo Mode is off.", "Фото-режим выключен."},
	KeyPhotoUsage:     {"Usage: /photo on|off", "Использование: /photo on|off"},
	KeyPhotoForbidden: {"Photo Mode is a Pro feature. See /pro.", "Фото-режим доступен в Pro. Подробнее: /pro"},
	KeyStatus: {
		"Plan: %s\nToday: %d/%d carousels, %d/%d with photos",
		"Тариф: %s\nСегодня: %d/%d каруселей, %d/%d с фото",
	},
	KeyStatusPro: {"\nPro until %s", "\nPro до %s"},
	KeyProOffer: {
		"⭐ Swipely Pro: %d carousels a day and Photo Mode for %d days.\nPrice: %s %s",
		"⭐ Swipely Pro: %d каруселей в день и фото-режим на %d дней.\nЦена: %s %s",
	},
	KeyProButton:     {"Pay %s %s", "Оплатить %s %s"},
	KeyProDisabled:   {"Payments are not available right now.", "Оплата сейчас недоступна."},
	KeyHistoryEmpty:  {"No carousels yet. Send me a topic!", "Пока нет каруселей. Пришли тему!"},
	KeyHistoryHeader: {"🕘 Recent carousels:", "🕘 Последние карусели:"},
	KeyHistoryItem:   {"%d. %s (%s, %d slides)", "%d. %s (%s, слайдов: %d)"},
	KeyGenerating: {
		"⏳ Creating %d slides in the %s style. This takes a minute.",
		"⏳ Создаю %d слайдов в стиле %s. Это займёт около минуты.",
	},
	KeyBusy: {
		"You already have a carousel in progress. Please wait for it to finish.",
		"Одна карусель уже создаётся. Дождись её, пожалуйста.",
	},
	KeyLimit: {
		"Daily limit reached (%d/%d). Upgrade with /pro or come back tomorrow.",
		"Дневной лимит исчерпан (%d/%d). Оформи /pro или возвращайся завтра.",
	},
	KeyGenericError: {"Something went wrong. Please try again later.", "Что-то пошло не так. Попробуй позже."},
	KeyInvalidRequest: {
		"I could not use that. Send a topic of up to a few sentences, or see /help.",
		"Не получилось это обработать. Пришли тему в пару предложений или загляни в /help.",
	},
	KeyAdminOnly: {"This command is for admins.", "Команда доступна только администраторам."},
	KeyStats: {
		"📊 Users: %d free, %d pro\nToday: %d carousels, %d with photos\nJobs: %d active, %d completed, %d failed\nRevenue: %s",
		"📊 Пользователи: %d free, %d pro\nСегодня: %d каруселей, %d с фото\nЗадачи: %d в работе, %d готово, %d ошибок\nВыручка: %s",
	},
	KeyGrantUsage: {"Usage: /grant <telegram_id> <days>", "Использование: /grant <telegram_id> <дней>"},
	KeyGrantDone:  {"User %d is Pro until %s.", "Пользователь %d на Pro до %s."},
	KeyDelivered: {
		"✅ Your carousel is ready: %d slides.",
		"✅ Карусель готова: %d слайдов.",
	},
	KeyEditButton:    {"✏️ Edit", "✏️ Редактировать"},
	KeyOpenButton:    {"🚀 Open Swipely", "🚀 Открыть Swipely"},
	KeyReasonTimeout: {"the request timed out", "превышено время ожидания"},
	KeyReasonService: {"an AI service is unavailable", "сервис ИИ недоступен"},
	KeyReasonInvalid: {"the result could not be used", "результат оказался непригодным"},
	KeyReasonConfig:  {"the service is misconfigured", "сервис настроен неверно"},
	KeyJobFailed: {
		"❌ I could not create this carousel (%s). The generation was not counted.",
		"❌ Не удалось создать карусель (%s). Генерация не засчитана.",
	},
	KeyPaymentDone: {"🎉 Payment received! Pro is active until %s.", "🎉 Оплата получена! Pro активен до %s."},
}

var (
	buildOnce sync.Once
	built     catalog.Catalog
)

func messages() catalog.Catalog {
	buildOnce.Do(func() {
		b := catalog.NewBuilder(catalog.Fallback(language.English))
		for key, texts := range entries {
			_ = b.SetString(language.English, key, texts[0])
			_ = b.SetString(language.Russian, key, texts[1])
		}
		built = b
	})
	return built
}

// Match resolves a Telegram language code to a supported tag.
func Match(code string) language.Tag {
	code = strings.TrimSpace(code)
	if code == "" {
		return language.English
	}
	_, idx := language.MatchStrings(matcher, code)
	return supported[idx]
}

// Code returns the base language code for a Telegram language code ("en" or "ru").
func Code(code string) string {
	base, _ := Match(code).Base()
	return base.String()
}

// Printer returns a printer for the matched language.
func Printer(code string) *message.Printer {
	return message.NewPrinter(Match(code), message.Catalog(messages()))
}

// T formats the message for key in the user's language.
func T(code, key string, args ...any) string {
	return Printer(code).Sprintf(key, args...)
}
