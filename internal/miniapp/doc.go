// Package miniapp authenticates Telegram Mini App users.
//
// The Mini App sends Telegram's signed initData string once; ValidateInitData
// checks its HMAC and freshness, and Sessions exchanges the verified user for
// a short-lived HS256 JWT that the web API accepts on every request.
package miniapp
