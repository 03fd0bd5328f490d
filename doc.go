// Package goCreds is a credential lifecycle engine: registration, email
// activation, password login with an optional TOTP second factor, password
// reset, TOTP enrollment and account credential changes.
//
// Build an [Engine] with [Builder], supplying a [CredentialStore] and
// optionally a [Mailer]. Engine methods are safe for concurrent use.
//
// # Architecture boundaries
//
// goCreds is the public surface. It exposes [Engine], [Builder], [Config],
// the persisted types and the sentinel errors. Flow orchestration, token
// hashing, the delivery outbox and audit dispatch live under internal/.
// Store implementations live under store/ and import this package, never the
// reverse.
//
// # Secrets
//
// Passwords are stored only as bcrypt (or argon2id) hashes. Verification and
// reset tokens are stored only as keyed HMAC-SHA256 hashes; the raw value
// leaves the engine once, through the Mailer. Neither plaintext passwords nor
// raw tokens nor TOTP secrets are logged or placed in audit events.
//
// # Errors
//
// Every failure is one of the Err* sentinels, possibly wrapped. Use
// [errors.Is] to match and [KindOf] to map to a transport status.
package goCreds
