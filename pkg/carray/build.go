package carray

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
	"github.com/ajitpratap0/carray/pkg/observability"
)

// FromDense builds an array from buf, sealing every full chunk and keeping the
// remainder as the tail. The result is identical to appending buf element by
// element. Chunks are sealed on up to cfg.Workers goroutines; chunk order is
// fixed by position, not completion order. ctx is checked before each chunk
// is sealed.
func FromDense[T dtype.Element](ctx context.Context, buf []T, cfg config.Engine, opts ...Option) (*Array[T], error) {
	a, err := New[T](cfg, opts...)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "carray.FromDense")
	defer span.End()
	span.SetAttribute("dtype", a.DType().String())
	span.SetAttribute("elements", len(buf))
	span.SetAttribute("codec", cfg.Codec)
	span.SetAttribute("workers", cfg.Workers)

	capacity := cfg.ChunkCapacity
	full := len(buf) / capacity
	chunks := make([]*Chunk, full)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for k := 0; k < full; k++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return canceled(err, k)
			}
			c, err := Seal(buf[k*capacity:(k+1)*capacity], a.codec, cfg.Shuffle)
			if err != nil {
				return err
			}
			chunks[k] = c
			a.metrics.ChunkSealed(string(c.Codec()), c.RawSize(), c.CompressedSize())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		err = canceled(err, 0)
		span.RecordError(err)
		return nil, err
	}

	a.chunks = chunks
	if rest := buf[full*capacity:]; len(rest) > 0 {
		a.tail = make([]T, len(rest), capacity)
		copy(a.tail, rest)
	}
	a.length = len(buf)

	stats := a.Stats()
	span.SetAttribute("chunks", stats.Chunks)
	span.SetAttribute("ratio", stats.Ratio)
	span.RecordError(nil)
	a.logger.Debug("bulk build finished",
		zap.Int("elements", a.length),
		zap.Int("chunks", stats.Chunks),
		zap.Int("workers", cfg.Workers),
		zap.Float64("ratio", stats.Ratio))
	return a, nil
}

func canceled(err error, chunk int) error {
	return errors.Wrap(err, errors.ErrorTypeCanceled, "bulk construction canceled").
		WithDetail("chunk", chunk)
}
