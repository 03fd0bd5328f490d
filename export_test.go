package goCreds

import "time"

// WithTestClock exposes the clock override to the external test package.
func (b *Builder) WithTestClock(now func() time.Time) *Builder {
	return b.withClock(now)
}
