package signals

// Option sets an explicit bound on a spike train, spike list or analog signal.
// Bounds that are not supplied are inferred from the data.
type Option func(*bounds)

type bounds struct {
	tStart *float64
	tStop  *float64
}

// WithTStart fixes t_start (ms).
func WithTStart(t float64) Option {
	return func(b *bounds) { b.tStart = &t }
}

// WithTStop fixes t_stop (ms).
func WithTStop(t float64) Option {
	return func(b *bounds) { b.tStop = &t }
}

// WithBounds fixes both t_start and t_stop.
func WithBounds(tStart, tStop float64) Option {
	return func(b *bounds) {
		b.tStart = &tStart
		b.tStop = &tStop
	}
}

func collectBounds(opts []Option) bounds {
	var b bounds
	for _, opt := range opts {
		opt(&b)
	}
	return b
}
