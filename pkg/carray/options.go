package carray

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/carray/pkg/compression"
	"github.com/ajitpratap0/carray/pkg/metrics"
)

// Option configures an array at construction
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	codecs  *compression.CompressorPool
}

// WithLogger sets the logger used for debug events
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the collectors that record sealing and cache activity
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCompressorPool shares codec instances between arrays. Without it each
// array builds its own compressor.
func WithCompressorPool(p *compression.CompressorPool) Option {
	return func(o *options) { o.codecs = p }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
