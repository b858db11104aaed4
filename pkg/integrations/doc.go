// Package integrations manages third-party integrations: registration,
// side-effect-free connectivity tests and partial-tolerant record syncs.
// Providers plug in through the Connector interface; the built-in HTTP
// connector covers providers that expose a plain HTTP API.
package integrations
