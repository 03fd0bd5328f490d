// Package middleware exposes HTTP adapters around goCreds.Engine.
//
// # Guards
//
//   - [Guard] authenticates the bearer session credential and stores the
//     resolved user in the request context.
//   - [RequireVerified] rejects users that have not activated their account.
//     It must run after [Guard].
//   - [ClientInfo] copies the caller's IP and User-Agent into the context so
//     that login attempts and audit events record them.
//
// This package translates HTTP semantics into Engine calls. It does not parse
// session credentials itself; every decision is delegated to
// Engine.Authenticate.
package middleware
