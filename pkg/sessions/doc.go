// Package sessions is the registry of authenticated user sessions. Session
// creation happens at the authentication edge outside this core; the
// registry lists active sessions, revokes them individually or in bulk and
// sweeps expired ones. Revocation is terminal and idempotent.
package sessions
