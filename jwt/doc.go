// Package jwt issues and verifies the session credential returned by
// registration and login: a signed JWT carrying the user ID and email with a
// fixed lifetime. HS256 with a shared secret is the default; Ed25519 with key
// rotation by "kid" is supported for deployments that verify elsewhere.
package jwt
