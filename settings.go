package grove

import "go.uber.org/zap"

// Setting configures a [Container] at construction.
type Setting func(*container)

// WithLogger sets the logger used for registration, closure and lifecycle
// events. The default discards everything.
func WithLogger(log *zap.Logger) Setting {
	return func(c *container) {
		if log != nil {
			c.log = log.Named("grove")
		}
	}
}

// WithoutAutowire disables construction of unregistered structs from their
// tagged fields. Such requests then fail with [ErrUnresolvedDependency].
func WithoutAutowire() Setting {
	return func(c *container) {
		c.autowire = false
	}
}
