// Package bot runs the Swipely Telegram bot.
//
// The bot long-polls getUpdates. Commands change preferences or show account
// state; any other text is a carousel prompt that goes through the same
// carousel service as the web API and is delivered back to the chat by the
// pipeline's deliverer. Replies are localized with the i18n package.
package bot
