package fetch

import "github.com/rs/zerolog"

type options struct {
	autoStart bool
	logger    zerolog.Logger
	onChange  func()
}

// Option configures a Controller
type Option func(*options)

// WithAutoStart controls whether Start runs the producer. Defaults to true.
func WithAutoStart(enabled bool) Option {
	return func(o *options) {
		o.autoStart = enabled
	}
}

// WithLogger sets the controller logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOnChange registers a callback invoked after every state transition.
// It runs outside the controller lock, so it may call State.
func WithOnChange(fn func()) Option {
	return func(o *options) {
		o.onChange = fn
	}
}
