package bot

import (
	"swipely/internal/services/telegram"
)

var commandDescriptions = []struct {
	command string
	en, ru  string
}{
	{"start", "Welcome and current settings", "Приветствие и текущие настройки"},
	{"styles", "List design templates", "Список шаблонов"},
	{"style", "Choose a template", "Выбрать шаблон"},
	{"format", "Square, portrait or stories", "Квадрат, портрет или сторис"},
	{"slides", "Number of slides", "Количество слайдов"},
	{"photo", "Toggle Photo Mode", "Фото-режим"},
	{"status", "Plan and today's usage", "Тариф и лимиты"},
	{"history", "Recent carousels", "Последние карусели"},
	{"pro", "Upgrade to Pro", "Перейти на Pro"},
	{"help", "All commands", "Все команды"},
}

func commandMenu(lang string) []telegram.BotCommand {
	out := make([]telegram.BotCommand, 0, len(commandDescriptions))
	for _, c := range commandDescriptions {
		desc := c.en
		if lang == "ru" {
			desc = c.ru
		}
		out = append(out, telegram.BotCommand{Command: c.command, Description: desc})
	}
	return out
}
