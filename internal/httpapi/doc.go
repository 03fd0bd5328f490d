// Package httpapi serves the goCreds engine over JSON HTTP.
//
// Successful responses are {"data": ...}. Failures are
// {"error": {"code", "message", "errors": [{"field", "messages"}]}} with the
// status derived from goCreds.KindOf. Account routes require a bearer session
// credential.
package httpapi
