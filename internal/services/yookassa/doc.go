// Package yookassa is a minimal YooKassa v3 payments client.
//
// CreatePayment opens a redirect-confirmation payment and returns the URL the
// user pays at. YooKassa does not sign webhook notifications, so handlers must
// treat the notification body as a hint only and re-fetch the payment with
// GetPayment before trusting its status.
package yookassa
