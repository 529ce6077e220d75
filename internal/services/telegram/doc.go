// Package telegram is a small Telegram Bot API client.
//
// It covers what the bot needs: long polling with getUpdates, text replies
// with inline keyboards, chat actions, callback answers, command registration
// and multipart photo uploads through sendMediaGroup. Albums are limited to ten
// photos by Telegram; SendAlbum splits larger sets.
//
// Mini App initData validation lives in internal/miniapp, not here.
package telegram
