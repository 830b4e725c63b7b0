// Package compression provides the chunk codecs used by carray.
//
// Each codec compresses one chunk payload at a time. Levels run from 0 to 9:
// level 0 always stores the payload uncompressed, and levels 1-9 select the
// codec's compression effort (lowest to highest).
//
// # Algorithm Selection
//
//   - LZ4: extremely fast, decent ratio (default)
//   - Snappy/S2: fast, moderate ratio
//   - Zstd: best ratio, good speed
//   - Gzip/Deflate: slowest, wide compatibility
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	packed, err := comp.Compress(raw)
//	raw, err = comp.Decompress(packed, len(raw))
//
// All compressors are safe for concurrent use, which the parallel bulk
// builder in package carray relies on.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a codec
type Algorithm string

const (
	// None stores payloads as-is
	None Algorithm = "none"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// Snappy represents snappy block compression
	Snappy Algorithm = "snappy"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported codec
func Algorithms() []Algorithm {
	return []Algorithm{None, LZ4, Zstd, Snappy, S2, Gzip, Deflate}
}

// ParseAlgorithm resolves a codec identifier, case-insensitively
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Algorithms() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unsupported compression algorithm: %s", s)
}

// Level is the compression effort, 0-9
type Level int

const (
	// Store disables compression regardless of the algorithm
	Store Level = 0
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

// Valid reports whether l is within 0-9
func (l Level) Valid() bool { return l >= Store && l <= Best }

func (l Level) String() string {
	switch l {
	case Store:
		return "Store"
	case Fastest:
		return "Fastest"
	case Default:
		return "Default"
	case Better:
		return "Better"
	case Best:
		return "Best"
	default:
		return fmt.Sprintf("Level%d", int(l))
	}
}

// Compressor compresses and decompresses chunk payloads
type Compressor interface {
	// Compress returns the compressed form of data. data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress reverses Compress. size is the expected decompressed
	// length; a payload that does not expand to exactly size bytes is an error.
	Decompress(data []byte, size int) ([]byte, error)

	// Algorithm returns the effective codec, None when the level is Store
	Algorithm() Algorithm

	// Level returns the configured level
	Level() Level
}

// Config represents compressor configuration
type Config struct {
	Algorithm Algorithm
	Level     Level
}

// DefaultConfig returns LZ4 at the default level
func DefaultConfig() *Config {
	return &Config{
		Algorithm: LZ4,
		Level:     Default,
	}
}

// NewCompressor creates a compressor for config. A nil config uses DefaultConfig.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Level.Valid() {
		return nil, fmt.Errorf("compression level %d out of range 0-9", int(config.Level))
	}
	if config.Level == Store {
		return &noneCompressor{baseCompressor{algorithm: None, level: Store}}, nil
	}

	switch config.Algorithm {
	case None:
		return &noneCompressor{baseCompressor{algorithm: None, level: config.Level}}, nil
	case LZ4:
		return newLZ4Compressor(config), nil
	case Zstd:
		return newZstdCompressor(config)
	case Snappy:
		return &snappyCompressor{baseCompressor{algorithm: Snappy, level: config.Level}}, nil
	case S2:
		return &s2Compressor{baseCompressor{algorithm: S2, level: config.Level}}, nil
	case Gzip:
		return newGzipCompressor(config), nil
	case Deflate:
		return newDeflateCompressor(config), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

// CompressorPool hands out one shared compressor per configuration. Encoder
// state (zstd in particular) is expensive to build and all compressors are
// safe for concurrent use, so arrays with the same settings share one.
//
// CompressorPool is safe for concurrent use.
type CompressorPool struct {
	mu          sync.Mutex
	compressors map[Config]Compressor
}

// NewCompressorPool creates an empty pool
func NewCompressorPool() *CompressorPool {
	return &CompressorPool{compressors: make(map[Config]Compressor)}
}

// Get returns the pooled compressor for config, creating it on first use
func (cp *CompressorPool) Get(config Config) (Compressor, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if c, ok := cp.compressors[config]; ok {
		return c, nil
	}
	c, err := NewCompressor(&config)
	if err != nil {
		return nil, err
	}
	cp.compressors[config] = c
	return c, nil
}

// Len returns the number of distinct configurations in the pool
func (cp *CompressorPool) Len() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.compressors)
}

// Base compressor implementation
type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

func (bc *baseCompressor) Algorithm() Algorithm { return bc.algorithm }
func (bc *baseCompressor) Level() Level         { return bc.level }

func checkSize(out []byte, size int) ([]byte, error) {
	if len(out) != size {
		return nil, fmt.Errorf("decompressed %d bytes, want %d", len(out), size)
	}
	return out, nil
}

// readAllLimited drains r, failing if it yields more than size bytes
func readAllLimited(r io.Reader, size int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(size)
	if _, err := io.Copy(&buf, io.LimitReader(r, int64(size)+1)); err != nil {
		return nil, err
	}
	return checkSize(buf.Bytes(), size)
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (nc *noneCompressor) Decompress(data []byte, size int) ([]byte, error) {
	if _, err := checkSize(data, size); err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func newLZ4Compressor(config *Config) *lz4Compressor {
	return &lz4Compressor{
		baseCompressor:   baseCompressor{algorithm: LZ4, level: config.Level},
		compressionLevel: mapLZ4Level(config.Level),
	}
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)

	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel), lz4.ChecksumOption(true)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lc *lz4Compressor) Decompress(data []byte, size int) ([]byte, error) {
	return readAllLimited(lz4.NewReader(bytes.NewReader(data)), size)
}

// Zstd compressor. EncodeAll/DecodeAll are safe for concurrent use, so a
// single encoder and decoder serve every caller.
type zstdCompressor struct {
	baseCompressor
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor(config *Config) (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(mapZstdLevel(config.Level))),
		zstd.WithEncoderCRC(true),
		zstd.WithZeroFrames(true))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &zstdCompressor{
		baseCompressor: baseCompressor{algorithm: Zstd, level: config.Level},
		encoder:        enc,
		decoder:        dec,
	}, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte, size int) ([]byte, error) {
	out, err := zc.decoder.DecodeAll(data, make([]byte, 0, size))
	if err != nil {
		return nil, err
	}
	return checkSize(out, size)
}

// Snappy compressor
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte, size int) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return checkSize(out, size)
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	switch {
	case sc.level >= Better:
		return s2.EncodeBest(nil, data), nil
	case sc.level >= 4:
		return s2.EncodeBetter(nil, data), nil
	default:
		return s2.Encode(nil, data), nil
	}
}

func (sc *s2Compressor) Decompress(data []byte, size int) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return checkSize(out, size)
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(config *Config) *gzipCompressor {
	level := int(config.Level)

	gc := &gzipCompressor{
		baseCompressor: baseCompressor{algorithm: Gzip, level: config.Level},
	}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gc *gzipCompressor) Decompress(data []byte, size int) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return readAllLimited(r, size)
}

// Deflate compressor
type deflateCompressor struct {
	baseCompressor
	writerPool sync.Pool
}

func newDeflateCompressor(config *Config) *deflateCompressor {
	level := int(config.Level)

	dc := &deflateCompressor{
		baseCompressor: baseCompressor{algorithm: Deflate, level: config.Level},
	}
	dc.writerPool.New = func() interface{} {
		w, _ := flate.NewWriter(nil, level)
		return w
	}
	return dc
}

func (dc *deflateCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := dc.writerPool.Get().(*flate.Writer)
	defer dc.writerPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (dc *deflateCompressor) Decompress(data []byte, size int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return readAllLimited(r, size)
}

// Helper functions to map compression levels

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	if !level.Valid() {
		return lz4.Fast
	}
	return lz4Levels[level]
}

// mapZstdLevel spreads 1-9 over zstd's 1-19 numeric scale
func mapZstdLevel(level Level) int {
	return 1 + (int(level)-1)*9/4
}
