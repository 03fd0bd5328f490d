package goCreds

import (
	"context"

	"github.com/MrEthical07/goCreds/internal/outbox"
)

const (
	// TemplateVerificationToken carries the account activation token.
	TemplateVerificationToken = "verification-token"
	// TemplateForgotPassword carries the password reset token.
	TemplateForgotPassword = "forgot-password"

	// TemplateVarToken is the template variable holding the raw token.
	TemplateVarToken = "token"
)

// Mailer delivers a templated message. Implementations must not log vars:
// they contain raw single-use tokens.
//
// The engine calls Send from a background worker with a per-message timeout;
// errors are logged and counted, never retried.
type Mailer interface {
	Send(ctx context.Context, template, recipient string, vars map[string]string) error
}

// DeliveryStats reports delivery outcomes since the engine was built.
type DeliveryStats = outbox.Stats

// deliverToken queues a message carrying a raw token. It never blocks the
// caller past ctx and never fails the calling operation.
func (e *Engine) deliverToken(ctx context.Context, template, recipient, rawToken string) {
	if e == nil || e.outbox == nil {
		return
	}
	accepted := e.outbox.Enqueue(ctx, outbox.Message{
		Template:  template,
		Recipient: recipient,
		Vars:      map[string]string{TemplateVarToken: rawToken},
	})
	if accepted {
		e.metricInc(MetricDeliveryQueued)
	}
}

// DeliveryStats returns the outbox counters.
func (e *Engine) DeliveryStats() DeliveryStats {
	if e == nil {
		return DeliveryStats{}
	}
	return e.outbox.Stats()
}
