// Package outbox delivers templated messages (activation and reset emails)
// off the request path.
//
// An [Outbox] owns a buffered queue and a single worker goroutine that calls
// the configured [Sender] with a per-message timeout. Failures are logged and
// counted; they never reach the caller that enqueued the message, and nothing
// is retried.
//
// # What this package must NOT do
//
//   - Log message variables. They carry raw single-use tokens.
//   - Import goCreds or any sibling internal package.
package outbox
