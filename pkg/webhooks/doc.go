// Package webhooks manages outbound webhook subscriptions and their
// delivery history. Test deliveries hit the real endpoint but are never
// written to the delivery log; production deliveries are appended by the
// dispatch path and read back newest-first.
package webhooks
