// Package internal contains helpers that are private to goCreds, currently
// opaque token generation and the keyed token hash.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: flow orchestrators for the login and password reset operations
//   - outbox: fire-and-forget delivery of templated messages
//   - httpapi: HTTP boundary (routing, validation, error rendering)
//   - config: process configuration from the environment
//
// # What this package must NOT do
//
//   - Export types that appear in the public goCreds API.
//   - Be imported by any package outside the goCreds module.
package internal
