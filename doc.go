// Package carray provides compressed, chunked, in-memory columns of numbers
// and booleans, tables built from them, and predicate evaluation and
// selection that work chunk by chunk instead of on the whole data set.
//
// # Architecture
//
// Data is stored in four layers:
//
// 1. Chunks (pkg/carray.Chunk): an immutable, compressed run of at most
// ChunkCapacity elements, optionally byte-shuffled, with an xxhash checksum
// over the raw bytes.
//
// 2. Arrays (pkg/carray.Array[T]): an ordered list of sealed chunks plus an
// uncompressed tail. Reads go through a small LRU cache of decompressed
// chunks, so sequential access decompresses each chunk once.
//
// 3. Tables (pkg/ctable.Table): named columns of equal length and equal
// chunk capacity. Row walks read every column in lock-step, one block at a
// time.
//
// 4. Expressions (pkg/expr): a closed arithmetic and comparison grammar,
// type-checked against a table and evaluated block by block into a
// compressed boolean mask.
//
// # Quick Start
//
//	cfg := config.DefaultEngine()
//	x, _ := carray.Arange(ctx, 1_000_000, cfg)
//	t, _ := ctable.FromColumns([]string{"x"}, []carray.Column{x})
//
//	mask, _ := t.Evaluate(ctx, "(x - 1) < 10.")
//	sel, _ := t.MaskedSelect(mask)
//	for sel.Next() {
//	    fmt.Println(sel.Index(), sel.Row())
//	}
//
// Selection returns the same elements in the same order whichever access
// path is used: a dense slice, a compressed array, dense rows or a
// compressed table.
//
// # Key Packages
//
//   - pkg/dtype: element types, byte encoding and dense vectors
//   - pkg/compression: lz4, zstd, snappy, s2, gzip and deflate codecs and the byte shuffle filter
//   - pkg/carray: chunks, arrays, iterators, masks and selection
//   - pkg/ctable: tables, row iteration and masked row selection
//   - pkg/expr: expression parser, type checker and evaluator
//   - pkg/arrowio: Apache Arrow arrays, records and IPC streams
//   - pkg/config, pkg/logger, pkg/metrics, pkg/observability: settings, zap logging, Prometheus and OpenTelemetry
//
// # Command Line
//
// cmd/carray runs the selection benchmark, evaluates predicates over
// generated tables and exports tables as Arrow streams:
//
//	carray bench --n 50000000 --expr "(x-1) < 10." --codec lz4 --level 5
//	carray eval "x % 1000 == 0" --show 3
//	carray export --n 100000 --out x.arrows
package carray
