// Package i18n holds the user-facing bot strings in English and Russian.
//
// Language codes reported by Telegram are matched against the supported set
// with golang.org/x/text/language; anything unmatched falls back to English.
package i18n
