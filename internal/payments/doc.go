// Package payments sells Swipely Pro through YooKassa.
//
// Checkout creates a provider payment and records it as pending. Webhooks are
// never trusted on their own: the payment is re-fetched from the provider and
// only a succeeded status settles it, once, extending the buyer's Pro period.
package payments
