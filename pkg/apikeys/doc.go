// Package apikeys issues and manages organization API keys. Only a hash of
// each secret is stored; the plaintext is returned exactly once at creation
// or rotation and cannot be recovered afterwards.
package apikeys
